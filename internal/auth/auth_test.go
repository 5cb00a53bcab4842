package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqmarket/models"
)

const secret = "test-secret-0123456789"

func TestMintAndParse(t *testing.T) {
	iss := NewIssuer(secret, "rfqmarket", time.Hour)
	id := uuid.New()

	tok, err := iss.Mint(id, models.RoleHybrid)
	require.NoError(t, err)

	actor, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, models.RoleHybrid, actor.Role)
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer(secret, "rfqmarket", time.Hour)
	tok, err := iss.Mint(uuid.New(), models.RoleBuyer)
	require.NoError(t, err)

	other := NewIssuer("another-secret-0123456789", "rfqmarket", time.Hour)
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)

	wrongIssuer := NewIssuer(secret, "someone-else", time.Hour)
	_, err = wrongIssuer.Parse(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)

	later := NewIssuer(secret, "rfqmarket", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = iss.Mint(uuid.New(), models.Role("ADMIN"))
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer(secret, "rfqmarket", time.Hour)
	id := uuid.New()
	tok, err := iss.Mint(id, models.RoleManufacturer)
	require.NoError(t, err)

	var seen uuid.UUID
	h := iss.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := ActorFrom(r.Context())
		require.True(t, ok)
		seen = a.ID
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/rfqs/pool", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/rfqs/pool", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/rfqs/pool", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, id, seen)
}
