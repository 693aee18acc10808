package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

const (
	DefaultPageLimit = 9
	MaxPageLimit     = 100
)

// ParseListOptions reads startIndex, limit and sort (or order) from the
// query string. sort/order accept "asc" and "desc"; desc is the default.
func ParseListOptions(r *http.Request) (types.ListOptions, error) {
	q := r.URL.Query()
	opts := types.ListOptions{Limit: DefaultPageLimit}

	if v := q.Get("startIndex"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, types.NewError(types.ErrValidation, "startIndex must be a non-negative integer")
		}
		opts.StartIndex = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, types.NewError(types.ErrValidation, "limit must be a positive integer")
		}
		opts.Limit = min(n, MaxPageLimit)
	}

	direction := q.Get("sort")
	if direction == "" {
		direction = q.Get("order")
	}
	switch strings.ToLower(direction) {
	case "", "desc":
	case "asc":
		opts.Ascending = true
	default:
		return opts, types.NewError(types.ErrValidation, "sort must be asc or desc")
	}
	return opts, nil
}

// UUIDParam parses the named chi URL parameter.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.NewError(types.ErrValidation, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
