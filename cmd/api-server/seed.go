package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rfqmarket/db"
	"rfqmarket/models"
)

type seedFile struct {
	Users []seedUser `yaml:"users"`
	RFQs  []seedRFQ  `yaml:"rfqs"`
}

type seedDims struct {
	Length   float64 `yaml:"length"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Diameter float64 `yaml:"diameter"`
}

func (d seedDims) model() models.Dimensions {
	return models.Dimensions{Length: d.Length, Width: d.Width, Height: d.Height, Diameter: d.Diameter}
}

type seedUser struct {
	ID                 uuid.UUID `yaml:"id"`
	Email              string    `yaml:"email"`
	FullName           string    `yaml:"full_name"`
	Role               string    `yaml:"role"`
	CompanyName        string    `yaml:"company_name"`
	Country            string    `yaml:"country"`
	Region             string    `yaml:"region"`
	GSTNumber          string    `yaml:"gst_number"`
	ManufacturingTypes []string  `yaml:"manufacturing_types"`
	PrimaryMaterials   []string  `yaml:"primary_materials"`
	Certifications     []string  `yaml:"certifications"`
	RegionsServed      []string  `yaml:"regions_served"`
	MaxDimensions      seedDims  `yaml:"max_dimensions"`
	Status             string    `yaml:"manufacturer_status"`
}

type seedWorkpiece struct {
	MainFile   string   `yaml:"main_file"`
	Technology string   `yaml:"technology"`
	Material   string   `yaml:"material"`
	Quantity   int      `yaml:"quantity"`
	Dimensions seedDims `yaml:"dimensions"`
}

type seedRFQ struct {
	ID          uuid.UUID       `yaml:"id"`
	Buyer       uuid.UUID       `yaml:"buyer"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Status      string          `yaml:"status"`
	Country     string          `yaml:"country"`
	Region      string          `yaml:"region"`
	DeadlineIn  time.Duration   `yaml:"deadline_in"`
	Workpieces  []seedWorkpiece `yaml:"workpieces"`
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &f, nil
}

func (u seedUser) model() (*models.User, error) {
	user := &models.User{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               models.Role(u.Role),
		CompanyName:        u.CompanyName,
		Country:            u.Country,
		Region:             u.Region,
		GSTNumber:          u.GSTNumber,
		ManufacturingTypes: pq.StringArray(u.ManufacturingTypes),
		PrimaryMaterials:   pq.StringArray(u.PrimaryMaterials),
		Certifications:     pq.StringArray(u.Certifications),
		MaxDimensions:      u.MaxDimensions.model(),
		ManufacturerStatus: models.ManufacturerStatus(u.Status),
	}
	user.ManufacturerSettings.RegionsServed = u.RegionsServed
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.Email, err)
	}
	return user, nil
}

func (s seedRFQ) model(now time.Time) (*models.RFQ, error) {
	rfq := &models.RFQ{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		BuyerID:     s.Buyer,
		Status:      models.RFQStatus(s.Status),
		Workpieces:  models.Workpieces{},
	}
	if rfq.Status == "" {
		rfq.Status = models.StatusOpenForRequests
	}
	for _, w := range s.Workpieces {
		rfq.Workpieces = append(rfq.Workpieces, models.Workpiece{
			MainFile:   w.MainFile,
			Technology: models.Technology(w.Technology),
			Material:   w.Material,
			Quantity:   w.Quantity,
			Dimensions: w.Dimensions.model(),
		})
	}
	rfq.Country = s.Country
	rfq.Region = s.Region
	deadline := s.DeadlineIn
	if deadline <= 0 {
		deadline = 14 * 24 * time.Hour
	}
	rfq.RFQDeadline = now.Add(deadline)
	rfq.Requirements.ApplyDefaults()
	if err := rfq.Validate(); err != nil {
		return nil, fmt.Errorf("rfq %q: %w", s.Title, err)
	}
	return rfq, nil
}

// seeder is the slice of storage the seed command writes through.
type seeder interface {
	UpsertUser(ctx context.Context, u *models.User) error
	CreateRFQ(ctx context.Context, r *models.RFQ) error
}

func applySeed(ctx context.Context, s seeder, f *seedFile, now time.Time) error {
	for _, su := range f.Users {
		u, err := su.model()
		if err != nil {
			return err
		}
		if err := s.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
	}
	for _, sr := range f.RFQs {
		r, err := sr.model(now)
		if err != nil {
			return err
		}
		if err := s.CreateRFQ(ctx, r); err != nil {
			return fmt.Errorf("seed rfq %q: %w", sr.Title, err)
		}
	}
	log.Info().Int("users", len(f.Users)).Int("rfqs", len(f.RFQs)).Msg("seed applied")
	return nil
}

func seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and RFQs from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fh, err := os.Open(path)
			if err != nil {
				return err
			}
			defer fh.Close()
			f, err := parseSeed(fh)
			if err != nil {
				return err
			}

			conn, err := db.Connect(dbConfig(cfg))
			if err != nil {
				return fmt.Errorf("cannot connect to DB: %w", err)
			}
			defer conn.Close()
			return applySeed(cmd.Context(), db.NewStorage(conn, cfg.Database.QueryTimeout), f, time.Now())
		},
	}
	cmd.Flags().StringVar(&path, "file", "seed.yaml", "seed file")
	return cmd
}
