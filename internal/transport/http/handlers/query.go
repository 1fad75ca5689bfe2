package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/xchat/pkg/domain"
)

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", domain.ErrBadRequest, key, r.PathValue(key))
	}
	return id, nil
}

// parsePage reads page (0-based) and pageSize. Out of range values are
// rejected rather than clamped.
func parsePage(q url.Values) (domain.Page, error) {
	number, err := intParam(q, "page", 0)
	if err != nil {
		return domain.Page{}, err
	}
	size, err := intParam(q, "pageSize", domain.DefaultPageSize)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.NewPage(number, size)
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrBadRequest, key)
	}
	return v, nil
}

// millisParam reads an optional epoch milliseconds parameter.
func millisParam(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be epoch milliseconds", domain.ErrBadRequest, key)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// membersParam reads a comma separated list of names. Repeated parameters
// are merged.
func membersParam(q url.Values) ([]domain.Name, error) {
	raw := lo.FlatMap(q["members"], func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
	raw = lo.Compact(lo.Map(raw, func(v string, _ int) string { return strings.TrimSpace(v) }))
	if len(raw) == 0 {
		return nil, nil
	}
	return domain.ParseNames(raw)
}
