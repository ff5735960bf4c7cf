package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufal6785/agentbox/internal/handler"
	"github.com/sufal6785/agentbox/internal/model"
)

type mockStatsSource struct {
	stats *model.ExecutionStats
	err   error
}

func (m *mockStatsSource) Stats(ctx context.Context) (*model.ExecutionStats, error) {
	return m.stats, m.err
}

// mockUserRepo only implements Count meaningfully; the stats handler never
// touches the rest.
type mockUserRepo struct {
	count    int
	countErr error
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return nil, errors.New("not implemented")
}
func (m *mockUserRepo) UpsertGitHub(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) Count(ctx context.Context) (int, error)                   { return m.count, m.countErr }

func TestStatsHandler_HandleStats(t *testing.T) {
	logger := testLogger()

	t.Run("returns aggregate stats", func(t *testing.T) {
		source := &mockStatsSource{stats: &model.ExecutionStats{
			TotalExecutions:      10,
			SuccessfulExecutions: 7,
			SuccessRate:          70,
			LanguageUsage:        map[string]int{"python": 6, "go": 4},
		}}
		h := handler.NewStatsHandler(source, &mockUserRepo{count: 3}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rr := httptest.NewRecorder()

		h.HandleStats(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			TotalUsers           int            `json:"totalUsers"`
			TotalExecutions      int            `json:"totalExecutions"`
			SuccessfulExecutions int            `json:"successfulExecutions"`
			SuccessRate          float64        `json:"successRate"`
			LanguageUsage        map[string]int `json:"languageUsage"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, 3, res.TotalUsers)
		assert.Equal(t, 10, res.TotalExecutions)
		assert.Equal(t, 7, res.SuccessfulExecutions)
		assert.Equal(t, 70.0, res.SuccessRate)
		assert.Equal(t, 6, res.LanguageUsage["python"])
	})

	t.Run("stats query failure is a 500", func(t *testing.T) {
		source := &mockStatsSource{err: errors.New("db gone")}
		h := handler.NewStatsHandler(source, &mockUserRepo{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rr := httptest.NewRecorder()

		h.HandleStats(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "db gone")
	})
}
