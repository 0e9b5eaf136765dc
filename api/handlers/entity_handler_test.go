// api/handlers/entity_handler_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmann/supabase/api/handlers"
	"github.com/benmann/supabase/api/middleware"
	"github.com/benmann/supabase/api/models"
	"github.com/benmann/supabase/internal/core"
	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/grid"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/meta"
	"github.com/benmann/supabase/internal/telemetry"
)

// fakeResolver serves canned metadata keyed by schema.name.
type fakeResolver struct {
	entities    map[string]*domain.Entity
	constraints []domain.ForeignKeyConstraint
	encrypted   []string
}

func (f *fakeResolver) Resolve(_ context.Context, schema, name string) (*domain.Entity, error) {
	e, ok := f.entities[schema+"."+name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", meta.ErrEntityNotFound, schema, name)
	}
	return e, nil
}

func (f *fakeResolver) List(_ context.Context, schema string) ([]domain.EntityRef, error) {
	var refs []domain.EntityRef
	for _, e := range f.entities {
		if e.Schema == schema {
			refs = append(refs, domain.EntityRef{Schema: e.Schema, Name: e.Name, Kind: e.Kind})
		}
	}
	return refs, nil
}

func (f *fakeResolver) ListForeignKeys(_ context.Context, _ string) ([]domain.ForeignKeyConstraint, error) {
	return f.constraints, nil
}

func (f *fakeResolver) ListEncryptedColumns(_ context.Context, _, _ string) ([]string, error) {
	return f.encrypted, nil
}

// fakeFetcher returns canned rows and records the options it was asked for.
type fakeFetcher struct {
	rows     []domain.Row
	lastOpts *core.ListQueryOptions
}

func (f *fakeFetcher) Fetch(_ context.Context, entity *domain.Entity, opts *core.ListQueryOptions) ([]domain.Row, domain.QueryKey, error) {
	f.lastOpts = opts
	return f.rows, domain.QueryKey{Schema: entity.Schema, Entity: entity.Name, Shape: opts.Shape()}, nil
}

// fakeUpdater records update calls.
type fakeUpdater struct {
	calls []struct {
		entity *domain.Entity
		row    domain.Row
	}
	err error
}

func (f *fakeUpdater) UpdateRow(_ context.Context, entity *domain.Entity, previousRow, _ domain.Row) error {
	f.calls = append(f.calls, struct {
		entity *domain.Entity
		row    domain.Row
	}{entity, previousRow})
	return f.err
}

func newGridTestRouter(resolver *fakeResolver, fetcher *fakeFetcher, updater *fakeUpdater) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger()

	h := handlers.NewEntityHandler(resolver, fetcher, updater, grid.NewAdapter(log), telemetry.NewCollector("", log))

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/schemas/:schema/entities", h.ListEntities)
	router.GET("/schemas/:schema/entities/:entity", h.GetEntity)
	router.GET("/schemas/:schema/entities/:entity/rows", h.ListRows)
	router.PATCH("/schemas/:schema/entities/:entity/rows", h.UpdateRow)
	return router
}

func usersTable() *domain.Entity {
	return &domain.Entity{
		Schema: "public",
		Name:   "users",
		Kind:   domain.KindTable,
		Columns: []domain.Column{
			{Name: "id", DataType: "bigint", Format: "int8", Position: 1},
			{Name: "name", DataType: "text", Format: "text", Nullable: true, Position: 2},
		},
		PrimaryKeys: []string{"id"},
	}
}

func ordersView() *domain.Entity {
	return &domain.Entity{
		Schema: "public",
		Name:   "recent_orders",
		Kind:   domain.KindView,
		Columns: []domain.Column{
			{Name: "id", DataType: "bigint", Format: "int8", Position: 1},
		},
	}
}

func TestGetEntityDescriptor(t *testing.T) {
	resolver := &fakeResolver{entities: map[string]*domain.Entity{
		"public.users":         usersTable(),
		"public.recent_orders": ordersView(),
	}}
	router := newGridTestRouter(resolver, &fakeFetcher{}, &fakeUpdater{})

	t.Run("Table Is Editable", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/users", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body models.EntityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotNil(t, body.Descriptor)
		assert.True(t, body.Descriptor.Editable)
		assert.Equal(t, []string{"id"}, body.Descriptor.PrimaryKeys)
		assert.Len(t, body.Descriptor.Columns, 2)
	})

	t.Run("View Is Read Only", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/recent_orders", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body models.EntityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotNil(t, body.Descriptor)
		assert.False(t, body.Descriptor.Editable)
		assert.Empty(t, body.Descriptor.PrimaryKeys)
	})

	t.Run("Unknown Entity", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListRows(t *testing.T) {
	resolver := &fakeResolver{entities: map[string]*domain.Entity{"public.users": usersTable()}}
	fetcher := &fakeFetcher{rows: []domain.Row{
		{"id": float64(1), "name": "ada"},
		{"id": float64(2), "name": "grace"},
	}}
	router := newGridTestRouter(resolver, fetcher, &fakeUpdater{})

	t.Run("Returns Page With Count", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/users/rows?limit=50&offset=10&sort=name&order=desc", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body models.RowsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
		assert.Len(t, body.Rows, 2)

		require.NotNil(t, fetcher.lastOpts)
		assert.Equal(t, 50, fetcher.lastOpts.Limit)
		assert.Equal(t, 10, fetcher.lastOpts.Offset)
		assert.Equal(t, "name", fetcher.lastOpts.SortBy)
		assert.Equal(t, "desc", fetcher.lastOpts.SortOrder)
	})

	t.Run("Rejects Bad Pagination", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/users/rows?limit=0", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Rejects Unsafe Sort Column", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/schemas/public/entities/users/rows?sort=name%3Bdrop", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateRowRoute(t *testing.T) {
	patchBody := func(t *testing.T) *bytes.Reader {
		t.Helper()
		body, err := json.Marshal(models.UpdateRowRequest{
			Row:     domain.Row{"id": float64(1), "name": "ada"},
			Changes: domain.Row{"name": "ada lovelace"},
		})
		require.NoError(t, err)
		return bytes.NewReader(body)
	}

	t.Run("Editable Table Reaches Updater", func(t *testing.T) {
		resolver := &fakeResolver{entities: map[string]*domain.Entity{"public.users": usersTable()}}
		updater := &fakeUpdater{}
		router := newGridTestRouter(resolver, &fakeFetcher{}, updater)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPatch, "/schemas/public/entities/users/rows", patchBody(t))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, updater.calls, 1)
		assert.Equal(t, []string{"id"}, updater.calls[0].entity.PrimaryKeys)
	})

	t.Run("Read Only View Rejected Before Updater", func(t *testing.T) {
		resolver := &fakeResolver{entities: map[string]*domain.Entity{"public.recent_orders": ordersView()}}
		updater := &fakeUpdater{}
		router := newGridTestRouter(resolver, &fakeFetcher{}, updater)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPatch, "/schemas/public/entities/recent_orders/rows", patchBody(t))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, updater.calls, "read-only selections must never reach the remote store")
	})

	t.Run("Protected Schema Rejected Before Updater", func(t *testing.T) {
		catalogTable := usersTable()
		catalogTable.Schema = "pg_catalog"
		catalogTable.Name = "pg_class"
		resolver := &fakeResolver{entities: map[string]*domain.Entity{"pg_catalog.pg_class": catalogTable}}
		updater := &fakeUpdater{}
		router := newGridTestRouter(resolver, &fakeFetcher{}, updater)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPatch, "/schemas/pg_catalog/entities/pg_class/rows", patchBody(t))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, updater.calls)
	})
}
