package filter

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hay-kot/criterio"

	"github.com/nhle/advisor-tasks/internal/model"
)

// Address parameter names.
const (
	KeyStatus         = "status"
	KeyCategory       = "category"
	KeyManager        = "manager"
	KeyContractNumber = "contractNumber"
	KeyID             = "id"
	KeyPage           = "page"
	KeyTake           = "take"
)

var keys = []string{KeyStatus, KeyCategory, KeyManager, KeyContractNumber, KeyID, KeyPage, KeyTake}

// ValidationError reports a malformed address. It is recovered locally by
// falling back to the default filter.
type ValidationError struct {
	Query string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter %q: %v", e.Query, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// params is the decoded, not yet validated address.
type params struct {
	Status         *string `mapstructure:"status"`
	Category       *string `mapstructure:"category"`
	Manager        *string `mapstructure:"manager"`
	ContractNumber *string `mapstructure:"contractNumber"`
	ID             *string `mapstructure:"id"`
	Page           *int    `mapstructure:"page"`
	Take           *int    `mapstructure:"take"`
}

// Codec converts between address parameters and filters.
type Codec struct {
	defaults model.Filter
	maxTake  int
}

// NewCodec creates a codec for the configured page sizes.
func NewCodec(cfg model.FilterConfig) Codec {
	return Codec{defaults: model.DefaultFilter(cfg.DefaultTake), maxTake: cfg.MaxTake}
}

// Defaults returns the default filter.
func (c Codec) Defaults() model.Filter {
	return c.defaults.Clone()
}

// Parse decodes v. Missing parameters take their default. Any malformed
// parameter invalidates the whole address: the default filter is returned
// together with a *ValidationError.
func (c Codec) Parse(v url.Values) (model.Filter, error) {
	f, err := c.parse(v)
	if err != nil {
		return c.Defaults(), &ValidationError{Query: v.Encode(), Err: err}
	}
	return f, nil
}

func (c Codec) parse(v url.Values) (model.Filter, error) {
	raw := make(map[string]any, len(keys))
	var dup criterio.FieldErrorsBuilder
	for _, k := range keys {
		vals, ok := v[k]
		if !ok {
			continue
		}
		if len(vals) != 1 {
			dup = dup.Append(k, fmt.Errorf("repeated %d times", len(vals)))
			continue
		}
		raw[k] = vals[0]
	}
	if err := dup.ToError(); err != nil {
		return model.Filter{}, err
	}

	var p params
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decimalHook,
		Result:     &p,
	})
	if err != nil {
		return model.Filter{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return model.Filter{}, fmt.Errorf("decode filter: %w", err)
	}

	f := c.Defaults()
	if p.Status != nil {
		f.Status = model.Status(*p.Status)
	}
	if p.Page != nil {
		f.Page = *p.Page
	}
	if p.Take != nil {
		f.Take = *p.Take
	}
	f.Category = p.Category
	f.Manager = p.Manager
	f.ContractNumber = p.ContractNumber
	f.ID = p.ID

	if err := c.validate(f); err != nil {
		return model.Filter{}, err
	}
	return f, nil
}

// decimalHook decodes integer parameters written in canonical decimal
// form only, so that a parsed address serializes back to itself.
func decimalHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Int {
		return data, nil
	}
	s := data.(string)
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return nil, fmt.Errorf("%q is not a decimal number", s)
	}
	return n, nil
}

func (c Codec) validate(f model.Filter) error {
	var errs criterio.FieldErrorsBuilder
	if err := validStatus(f.Status); err != nil {
		errs = errs.Append(KeyStatus, err)
	}
	if f.Page < 1 {
		errs = errs.Append(KeyPage, fmt.Errorf("must be at least 1"))
	}
	if f.Take < 1 || f.Take > c.maxTake {
		errs = errs.Append(KeyTake, fmt.Errorf("must be between 1 and %d", c.maxTake))
	}
	if f.ID != nil && *f.ID == "" {
		errs = errs.Append(KeyID, fmt.Errorf("must not be empty"))
	}
	return errs.ToError()
}

func validStatus(s model.Status) error {
	if !s.Valid() {
		return fmt.Errorf("unknown status %q", s)
	}
	return nil
}

// Serialize encodes f. Unset dimensions and values equal to the default are
// omitted, so the default filter encodes to an empty address. The
// uncategorized selection encodes as an empty category parameter.
func (c Codec) Serialize(f model.Filter) url.Values {
	v := url.Values{}
	if f.Status != "" && f.Status != c.defaults.Status {
		v.Set(KeyStatus, string(f.Status))
	}
	setPtr(v, KeyCategory, f.Category)
	setPtr(v, KeyManager, f.Manager)
	setPtr(v, KeyContractNumber, f.ContractNumber)
	setPtr(v, KeyID, f.ID)
	if f.Page > 0 && f.Page != c.defaults.Page {
		v.Set(KeyPage, strconv.Itoa(f.Page))
	}
	if f.Take > 0 && f.Take != c.defaults.Take {
		v.Set(KeyTake, strconv.Itoa(f.Take))
	}
	return v
}

// IsDefault compares f with the default filter, ignoring pagination.
func (c Codec) IsDefault(f model.Filter) bool {
	return f.WithoutPagination().Equal(c.defaults.WithoutPagination())
}

func setPtr(v url.Values, key string, p *string) {
	if p != nil {
		v.Set(key, *p)
	}
}
