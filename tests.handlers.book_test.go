package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(t, nil)
	api.Status(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	expected := `{"requestid":"", "status":"up & running since 0 mins", "message":"Hello. Books catalog api is available. Enjoy :)"}`
	assert.JSONEq(t, expected, string(data))
}

func TestIndexHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	newTestAPIHandler(t, nil).Index(w, req, httprouter.Params{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/status", w.Header().Get("Location"))
}

// TestCreateBookHandler ensures api handler can create a book.
//
//nolint:funlen
func TestCreateBookHandler(t *testing.T) {
	api := newTestAPIHandler(t, newTestCatalogService(t, nil))

	t.Run("should pass: valid payload", func(t *testing.T) {
		payload := []byte(`{"title":"To foo or not to foo...", "author":{"name":"Lord Test McTestish"}}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		data, err := io.ReadAll(res.Body)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
		expected := `{"requestid":"", "status":201, "message":"Book created successfully.",
		"data":{"id":2, "book":{"title":"To foo or not to foo...", "author":{"name":"Lord Test McTestish"}}}}`
		assert.JSONEq(t, expected, string(data))
	})

	t.Run("should fail: invalid payload", func(t *testing.T) {
		payload := []byte(`{"title":1, "author":{"name":"Jon Skeet"}}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	})

	t.Run("should fail: required field in payload", func(t *testing.T) {
		testCases := []struct {
			name     string
			payload  []byte
			status   int
			expected string
		}{
			{
				name:     "empty title",
				payload:  []byte(`{"title":"", "author":{"name":"Jon Skeet"}}`),
				status:   http.StatusBadRequest,
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"title is required"}`,
			},
			{
				name:     "missing title",
				payload:  []byte(`{"author":{"name":"Jon Skeet"}}`),
				status:   http.StatusBadRequest,
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"title is required"}`,
			},
			{
				name:     "missing author",
				payload:  []byte(`{"title":"C# in depth."}`),
				status:   http.StatusBadRequest,
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"author.name is required"}`,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(tc.payload))
				w := httptest.NewRecorder()
				api.CreateBook(w, req, httprouter.Params{})
				res := w.Result()
				defer res.Body.Close()
				assert.Equal(t, tc.status, res.StatusCode)
				data, err := io.ReadAll(res.Body)
				assert.NoError(t, err)
				assert.JSONEq(t, tc.expected, string(data))
			})
		}
	})

	t.Run("should fail: storage insertion failure", func(t *testing.T) {
		mockRepo := &MockBookStorage{
			AddFunc: func(ctx context.Context, book Book) (BookEntity, error) {
				return BookEntity{}, errors.New("storage failure")
			},
		}
		cs := NewCatalogService(zap.NewNop(), NewMockClocker(), NewMockUIDHandler("0", true), mockRepo, nil)
		api := newTestAPIHandler(t, cs)
		payload := []byte(`{"title":"C# in depth.", "author":{"name":"Jon Skeet"}}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetAllBooksHandler(t *testing.T) {
	api := newTestAPIHandler(t, newTestCatalogService(t, nil))
	req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
	w := httptest.NewRecorder()
	api.GetAllBooks(w, req, httprouter.Params{})
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	expected := `{"requestid":"", "status":200, "message":"All books fetched successfully.", "total":1,
	"data":[{"id":1, "book":{"title":"C# in depth.", "author":{"name":"Jon Skeet"}}}]}`
	assert.JSONEq(t, expected, string(data))
}

func TestGetOneBookHandler(t *testing.T) {
	api := newTestAPIHandler(t, newTestCatalogService(t, nil))
	testCases := []struct {
		name     string
		id       string
		status   int
		expected string
	}{
		{
			name:   "existing book",
			id:     "1",
			status: http.StatusOK,
			expected: `{"requestid":"", "status":200, "message":"Book fetched successfully.",
			"data":{"id":1, "book":{"title":"C# in depth.", "author":{"name":"Jon Skeet"}}}}`,
		},
		{
			name:     "missing book",
			id:       "999",
			status:   http.StatusNotFound,
			expected: `{"requestid":"", "status":404, "message":"book does not exist", "data":{}}`,
		},
		{
			name:     "non numeric id",
			id:       "b:cb8f2136",
			status:   http.StatusBadRequest,
			expected: `{"requestid":"", "status":400, "message":"book id provided is not valid", "data":{}}`,
		},
		{
			name:     "zero id",
			id:       "0",
			status:   http.StatusNotFound,
			expected: `{"requestid":"", "status":404, "message":"book does not exist", "data":{}}`,
		},
		{
			name:     "negative id",
			id:       "-3",
			status:   http.StatusNotFound,
			expected: `{"requestid":"", "status":404, "message":"book does not exist", "data":{}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/books/"+tc.id, nil)
			w := httptest.NewRecorder()
			api.GetOneBook(w, req, httprouter.Params{{Key: "id", Value: tc.id}})
			res := w.Result()
			defer res.Body.Close()
			data, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}
