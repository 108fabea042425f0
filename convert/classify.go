package convert

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"strconv"

	apperrors "github.com/kbukum/faultkit/errors"
)

// Rule claims an error and returns the business error it represents.
// A rule that does not recognise err returns false.
type Rule func(err error) (*apperrors.BusinessError, bool)

// Classifier reduces arbitrary errors to business errors. Business errors
// pass through untouched, then the extra rules run in order, then the
// default rules. Anything left over is INTERNAL_SERVER_ERROR.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier that consults rules before the
// default rules.
func NewClassifier(rules ...Rule) *Classifier {
	all := make([]Rule, 0, len(rules)+len(defaultRules))
	all = append(all, rules...)
	all = append(all, defaultRules...)
	return &Classifier{rules: all}
}

// With returns a classifier that consults rules before those of c.
func (c *Classifier) With(rules ...Rule) *Classifier {
	all := make([]Rule, 0, len(rules)+len(c.rules))
	all = append(all, rules...)
	all = append(all, c.rules...)
	return &Classifier{rules: all}
}

// Classify returns the business error for err. It never fails, and it is
// idempotent: classifying a business error returns it unchanged. A nil
// error classifies to nil.
func (c *Classifier) Classify(err error) *apperrors.BusinessError {
	if err == nil {
		return nil
	}
	if be, ok := apperrors.As(err); ok {
		return be
	}
	for _, rule := range c.rules {
		if be, ok := rule(err); ok {
			return be
		}
	}
	return apperrors.Wrap(apperrors.KindInternal, "", err)
}

// Default is the classifier used by Classify.
var Default = NewClassifier()

// Classify classifies err with the default classifier.
func Classify(err error) *apperrors.BusinessError {
	return Default.Classify(err)
}

var defaultRules = []Rule{
	IllegalArgumentRule,
	PermissionRule,
	UnsupportedRule,
}

type illegalArgument interface{ IllegalArgument() bool }
type permission interface{ Permission() bool }
type unsupported interface{ Unsupported() bool }

// IllegalArgumentRule claims malformed input: apperrors.ErrIllegalArgument,
// number parse failures, JSON decode failures and errors that report
// IllegalArgument() true.
func IllegalArgumentRule(err error) (*apperrors.BusinessError, bool) {
	var (
		numErr    *strconv.NumError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		marker    illegalArgument
	)
	switch {
	case stderrors.Is(err, apperrors.ErrIllegalArgument),
		stderrors.As(err, &numErr),
		stderrors.As(err, &syntaxErr),
		stderrors.As(err, &typeErr),
		stderrors.As(err, &marker) && marker.IllegalArgument():
		return apperrors.Wrap(apperrors.KindBadRequest, "", err), true
	}
	return nil, false
}

// PermissionRule claims fs.ErrPermission, apperrors.ErrPermission and errors
// that report Permission() true.
func PermissionRule(err error) (*apperrors.BusinessError, bool) {
	var marker permission
	if stderrors.Is(err, fs.ErrPermission) ||
		stderrors.Is(err, apperrors.ErrPermission) ||
		(stderrors.As(err, &marker) && marker.Permission()) {
		return apperrors.Wrap(apperrors.KindForbidden, "", err), true
	}
	return nil, false
}

// UnsupportedRule claims errors.ErrUnsupported and errors that report
// Unsupported() true.
func UnsupportedRule(err error) (*apperrors.BusinessError, bool) {
	var marker unsupported
	if stderrors.Is(err, stderrors.ErrUnsupported) ||
		(stderrors.As(err, &marker) && marker.Unsupported()) {
		return apperrors.Wrap(apperrors.KindInvalidOperation, "", err), true
	}
	return nil, false
}
