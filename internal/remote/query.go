package remote

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/advisor-tasks/internal/model"
)

// Query is the filter predicate sent to the store. Unlike model.Filter it
// carries no detail selection, and a zero Page/Take means unpaginated.
type Query struct {
	// Status "" or model.StatusAll matches every status.
	Status model.Status

	// Category nil matches any category; "" matches uncategorized tasks.
	Category       *string
	Manager        *string
	ContractNumber *string

	Page int
	Take int
}

// ListQuery derives the primary list query from a filter snapshot.
func ListQuery(f model.Filter) Query {
	f = f.Clone()
	return Query{
		Status:         f.Status,
		Category:       f.Category,
		Manager:        f.Manager,
		ContractNumber: f.ContractNumber,
		Page:           f.Page,
		Take:           f.Take,
	}
}

// Offset returns the zero-based row offset of the requested page.
func (q Query) Offset() int {
	if q.Page < 1 || q.Take < 1 {
		return 0
	}
	return (q.Page - 1) * q.Take
}

// Query parameter names shared by the HTTP client and server.
const (
	ParamStatus         = "status"
	ParamCategory       = "category"
	ParamManager        = "manager"
	ParamContractNumber = "contractNumber"
	ParamPage           = "page"
	ParamTake           = "take"
)

// EncodeQuery renders q as URL parameters. An uncategorized filter is
// encoded as a present-but-empty category parameter.
func EncodeQuery(q Query) url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set(ParamStatus, string(q.Status))
	}
	if q.Category != nil {
		v.Set(ParamCategory, *q.Category)
	}
	if q.Manager != nil {
		v.Set(ParamManager, *q.Manager)
	}
	if q.ContractNumber != nil {
		v.Set(ParamContractNumber, *q.ContractNumber)
	}
	if q.Page > 0 {
		v.Set(ParamPage, strconv.Itoa(q.Page))
	}
	if q.Take > 0 {
		v.Set(ParamTake, strconv.Itoa(q.Take))
	}
	return v
}

// DecodeQuery is the inverse of EncodeQuery.
func DecodeQuery(v url.Values) (Query, error) {
	var q Query

	if s := v.Get(ParamStatus); s != "" {
		status := model.Status(s)
		if !status.Valid() {
			return Query{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
		}
		q.Status = status
	}
	q.Category = optional(v, ParamCategory)
	q.Manager = optional(v, ParamManager)
	q.ContractNumber = optional(v, ParamContractNumber)

	var err error
	if q.Page, err = optionalInt(v, ParamPage); err != nil {
		return Query{}, err
	}
	if q.Take, err = optionalInt(v, ParamTake); err != nil {
		return Query{}, err
	}

	return q, nil
}

func optional(v url.Values, key string) *string {
	if _, ok := v[key]; !ok {
		return nil
	}
	s := v.Get(key)
	return &s
}

func optionalInt(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidInput, key)
	}
	return n, nil
}
