package crud_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/jrsteele09/go-inventory-admin/crud"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

type item struct {
	EntityID string  `json:"entityId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
}

type call struct {
	method string
	path   string
	body   any
}

// fakeRequester answers each "METHOD path" with a canned payload or error.
type fakeRequester struct {
	mu        sync.Mutex
	responses map[string]any
	errs      map[string]error
	calls     []call
	during    func()
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{responses: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeRequester) Do(_ context.Context, method, path string, body, out any) error {
	f.mu.Lock()
	key := method + " " + path
	f.calls = append(f.calls, call{method, path, body})
	resp, err, during := f.responses[key], f.errs[key], f.during
	f.mu.Unlock()

	if during != nil {
		during()
	}
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func listing(items ...item) map[string]any {
	return map[string]any{"data": map[string]any{"items": items}}
}

func newResource(f *fakeRequester) *crud.Resource[item] {
	return crud.New(f, "products", func(i item) string { return i.EntityID })
}

func TestResource_FetchAll(t *testing.T) {
	f := newFakeRequester()
	f.responses["GET /products"] = listing(item{"1", "Milk", 2.5}, item{"2", "Bread", 1})
	r := newResource(f)
	require.Equal(t, "/products", r.Endpoint())

	var loadingDuringCall bool
	f.during = func() { loadingDuringCall = r.Loading() }

	items, err := r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, items, r.Items())
	require.True(t, loadingDuringCall)
	require.False(t, r.Loading())
	require.Empty(t, r.Err())
}

func TestResource_FetchAllFailure(t *testing.T) {
	f := newFakeRequester()
	f.responses["GET /products"] = listing(item{"1", "Milk", 2.5})
	r := newResource(f)
	_, err := r.FetchAll(context.Background())
	require.NoError(t, err)

	f.errs["GET /products"] = fmt.Errorf("dial tcp: connection refused")
	_, err = r.FetchAll(context.Background())
	require.Error(t, err)
	require.Equal(t, "Failed to fetch from /products", r.Err())
	require.Len(t, r.Items(), 1, "failed fetch keeps the previous items")
	require.False(t, r.Loading())

	// the next successful fetch clears the error
	delete(f.errs, "GET /products")
	_, err = r.FetchAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, r.Err())
}

func TestResource_Create(t *testing.T) {
	f := newFakeRequester()
	f.responses["POST /products"] = map[string]any{"data": item{"3", "Eggs", 3}}
	r := newResource(f)

	created, err := r.Create(context.Background(), map[string]any{"name": "Eggs", "price": 3})
	require.NoError(t, err)
	require.Equal(t, item{"3", "Eggs", 3}, created)
	require.Empty(t, r.Items())

	f.errs["POST /products"] = &apperrors.APIError{Status: 400, Message: "name is required"}
	_, err = r.Create(context.Background(), map[string]any{})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Equal(t, "name is required", r.Err())
}

func TestResource_Update(t *testing.T) {
	f := newFakeRequester()
	f.responses["GET /products"] = listing(item{"1", "Milk", 2.5}, item{"2", "Bread", 1})
	r := newResource(f)
	_, err := r.FetchAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Update(context.Background(), "2", map[string]any{"price": 1.2}))
	require.Equal(t, []item{{"1", "Milk", 2.5}, {"2", "Bread", 1.2}}, r.Items())
	require.Equal(t, call{"PUT", "/products/2", map[string]any{"price": 1.2}}, f.calls[len(f.calls)-1])

	// unknown id is sent but leaves the cache alone
	require.NoError(t, r.Update(context.Background(), "9", map[string]any{"price": 5}))
	require.Len(t, r.Items(), 2)

	f.errs["PUT /products/1"] = fmt.Errorf("boom")
	require.Error(t, r.Update(context.Background(), "1", map[string]any{"name": "Oat milk"}))
	require.Equal(t, "Failed to update item at /products", r.Err())
	require.Equal(t, "Milk", r.Items()[0].Name)
}

func TestResource_Remove(t *testing.T) {
	f := newFakeRequester()
	f.responses["GET /products"] = listing(item{"1", "Milk", 2.5}, item{"2", "Bread", 1})
	r := newResource(f)
	_, err := r.FetchAll(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Remove(context.Background(), "1"))
	require.Equal(t, []item{{"2", "Bread", 1}}, r.Items())

	f.errs["DELETE /products/2"] = &apperrors.APIError{Status: 404}
	err = r.Remove(context.Background(), "2")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, "Failed to delete item at /products", r.Err())
	require.Len(t, r.Items(), 1)
}

func TestResource_IDsAreEscaped(t *testing.T) {
	f := newFakeRequester()
	r := newResource(f)
	require.NoError(t, r.Remove(context.Background(), "a/b"))
	require.Equal(t, "/products/a%2Fb", f.calls[0].path)
}
