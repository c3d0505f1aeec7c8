// Package service contains the application services: the mutation gateway over
// the document and blob stores, and authentication for the backend.
package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/errs"
)

// Notice is the user-visible outcome of one operation. Err is nil on success.
type Notice struct {
	Op  string
	Err error
}

// Notifier surfaces outcomes to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Confirmer asks the user to confirm a destructive request.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Image is an uploaded picture. An empty ContentType is sniffed from Data.
type Image struct {
	Data        []byte
	ContentType string
}

func (im Image) contentType() string {
	if im.ContentType != "" {
		return im.ContentType
	}
	return mimetype.Detect(im.Data).String()
}

// Deps are the collaborators shared by the gateway services.
type Deps struct {
	Log     *zap.Logger
	Notify  Notifier
	Confirm Confirmer
	// Timeout bounds every capability call; zero leaves calls unbounded.
	Timeout time.Duration
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notify == nil {
		d.Notify = NotifierFunc(func(context.Context, Notice) {})
	}
	if d.Confirm == nil {
		// nothing to ask: destructive requests are declined
		d.Confirm = ConfirmerFunc(func(context.Context, string) (bool, error) { return false, nil })
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// call runs one capability call under the configured timeout and wraps its error.
func (d Deps) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return errs.Remote(op, fn(ctx))
}

// finish logs and reports the outcome of op and returns err unchanged.
func (d Deps) finish(ctx context.Context, op string, err error, fields ...zap.Field) error {
	switch {
	case err == nil:
		d.Log.Info(op, fields...)
	case isUserError(err):
		d.Log.Info(op+" rejected", append(fields, zap.Error(err))...)
	default:
		d.Log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	d.Notify.Notify(ctx, Notice{Op: op, Err: err})
	return err
}

func isUserError(err error) bool {
	return errors.Is(err, errs.ErrInvalid) || errors.Is(err, errs.ErrForbidden) ||
		errors.Is(err, errs.ErrAlreadyExists) || errors.Is(err, errs.ErrUnauthorized)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("field"); name != "" {
				return name
			}
			return strings.ToLower(f.Name)
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// validateStruct converts validator failures into an *errs.ValidationError.
func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return errs.Validation(fields...)
}
