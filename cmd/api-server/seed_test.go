package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqmarket/models"
)

type recordingSeeder struct {
	users []*models.User
	rfqs  []*models.RFQ
}

func (s *recordingSeeder) UpsertUser(ctx context.Context, u *models.User) error {
	s.users = append(s.users, u)
	return nil
}

func (s *recordingSeeder) CreateRFQ(ctx context.Context, r *models.RFQ) error {
	s.rfqs = append(s.rfqs, r)
	return nil
}

func TestApplySeedFile(t *testing.T) {
	fh, err := os.Open("testdata/seed.yaml")
	require.NoError(t, err)
	defer fh.Close()

	f, err := parseSeed(fh)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &recordingSeeder{}
	require.NoError(t, applySeed(context.Background(), s, f, now))

	require.Len(t, s.users, 2)
	shop := s.users[1]
	assert.Equal(t, uuid.MustParse("6f1c2a3e-0000-4000-8000-000000000002"), shop.ID)
	assert.Equal(t, models.RoleManufacturer, shop.Role)
	assert.Equal(t, []string{"Asia"}, shop.ManufacturerSettings.RegionsServed)
	assert.Equal(t, 500.0, shop.MaxDimensions.Length)

	require.Len(t, s.rfqs, 1)
	rfq := s.rfqs[0]
	assert.Equal(t, models.StatusOpenForRequests, rfq.Status)
	assert.Equal(t, now.Add(336*time.Hour), rfq.RFQDeadline)
	assert.Equal(t, "USD", rfq.PreferredCurrency)
	require.Len(t, rfq.Workpieces, 1)
	assert.Equal(t, models.TechCNC, rfq.Workpieces[0].Technology)
}

func TestParseSeedRejectsUnknownFields(t *testing.T) {
	_, err := parseSeed(strings.NewReader("users:\n  - emial: typo@example.com\n"))
	require.Error(t, err)
}

func TestApplySeedValidates(t *testing.T) {
	f, err := parseSeed(strings.NewReader("rfqs:\n  - title: Part\n    country: India\n    workpieces:\n      - main_file: a.stl\n        technology: LATHE\n        material: Steel\n        quantity: 1\n"))
	require.NoError(t, err)
	err = applySeed(context.Background(), &recordingSeeder{}, f, time.Now())
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-test")
	id := uuid.New()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--user", id.String(), "--role", "MANUFACTURER"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out.String()), "."))

	cmd = newRootCmd()
	cmd.SetArgs([]string{"token", "--user", id.String(), "--role", "ADMIN"})
	require.Error(t, cmd.Execute())
}
