package handler

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/resilience"
	"github.com/kbukum/faultkit/validation"
)

// Built-in handler priorities. Lower runs first.
const (
	PriorityBusiness      = 0
	PriorityValidation    = 1
	PriorityDataIntegrity = 2
	PriorityResilience    = 3
)

// Handler names, as they appear in logs and metrics.
const (
	NameBusiness      = "business"
	NameValidation    = "validation"
	NameDataIntegrity = "data_integrity"
	NameResilience    = "resilience"
	NameDefault       = "default"
)

// Resolution is the protocol-neutral outcome of resolving a failure.
type Resolution struct {
	// Fault is the business error the failure is reported as.
	Fault *apperrors.BusinessError
	// Detail is sent to clients when non-nil.
	Detail *string
}

// Resolver decides which business error a failure represents.
type Resolver struct {
	Name      string
	Priority  int
	CanHandle func(err error) bool
	Resolve   func(err error) Resolution
}

func resolution(fault *apperrors.BusinessError) Resolution {
	r := Resolution{Fault: fault}
	if d, ok := fault.Detail(); ok {
		r.Detail = &d
	}
	return r
}

// BusinessResolver passes business errors through unchanged.
func BusinessResolver() Resolver {
	return Resolver{
		Name:     NameBusiness,
		Priority: PriorityBusiness,
		CanHandle: func(err error) bool {
			_, ok := apperrors.As(err)
			return ok
		},
		Resolve: func(err error) Resolution {
			fault, _ := apperrors.As(err)
			return resolution(fault)
		},
	}
}

// ValidationResolver reports field validation failures as BAD_REQUEST with
// the failing fields as detail.
func ValidationResolver() Resolver {
	return Resolver{
		Name:      NameValidation,
		Priority:  PriorityValidation,
		CanHandle: func(err error) bool { return validationError(err) != nil },
		Resolve: func(err error) Resolution {
			verr := validationError(err)
			fault := apperrors.Wrap(apperrors.KindBadRequest, "", err).WithDetail(verr.Detail())
			return resolution(fault)
		},
	}
}

func validationError(err error) *validation.Error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		return validation.FromValidationErrors(ves)
	}
	return nil
}

// DataIntegrityResolver reports storage constraint violations as
// DUPLICATE_ENTRY. The driver message never reaches clients.
func DataIntegrityResolver() Resolver {
	return Resolver{
		Name:      NameDataIntegrity,
		Priority:  PriorityDataIntegrity,
		CanHandle: IsDataIntegrityViolation,
		Resolve: func(err error) Resolution {
			return Resolution{Fault: apperrors.Wrap(apperrors.KindDuplicateEntry, "", err)}
		},
	}
}

// mysqlIntegrityErrors are the server error numbers for duplicate keys and
// foreign key violations.
var mysqlIntegrityErrors = map[uint16]bool{
	1062: true, // ER_DUP_ENTRY
	1216: true, // ER_NO_REFERENCED_ROW
	1217: true, // ER_ROW_IS_REFERENCED
	1451: true, // ER_ROW_IS_REFERENCED_2
	1452: true, // ER_NO_REFERENCED_ROW_2
}

// integrityClass is the SQLSTATE class for integrity constraint violations.
const integrityClass = "23"

// IsDataIntegrityViolation reports whether err is a constraint violation
// raised by gorm, pgx, lib/pq or the MySQL driver, or is marked with
// errors.ErrDataIntegrity.
func IsDataIntegrityViolation(err error) bool {
	if errors.Is(err, apperrors.ErrDataIntegrity) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, integrityClass) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == integrityClass {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && mysqlIntegrityErrors[myErr.Number]
}

// ResilienceResolver reports failures raised by rate limiters, bulkheads,
// retries and downstream calls. It recognises them by identity and type.
func ResilienceResolver() Resolver {
	return Resolver{
		Name:     NameResilience,
		Priority: PriorityResilience,
		CanHandle: func(err error) bool {
			_, ok := resilience.Classify(err)
			return ok
		},
		Resolve: func(err error) Resolution {
			kind, _ := resilience.Classify(err)
			return Resolution{Fault: apperrors.Wrap(kind, "", err)}
		},
	}
}

// DefaultResolver claims everything. It classifies err and, when
// exposeDetail is set, sends the original error message as detail.
func DefaultResolver(classifier *convert.Classifier, exposeDetail bool) Resolver {
	if classifier == nil {
		classifier = convert.Default
	}
	return Resolver{
		Name:      NameDefault,
		Priority:  math.MaxInt,
		CanHandle: func(error) bool { return true },
		Resolve: func(err error) Resolution {
			r := resolution(classifier.Classify(err))
			if exposeDetail {
				msg := err.Error()
				r.Detail = &msg
			}
			return r
		},
	}
}

// BuiltinResolvers returns the shared resolvers in priority order, without
// the catch-all.
func BuiltinResolvers() []Resolver {
	return []Resolver{
		BusinessResolver(),
		ValidationResolver(),
		DataIntegrityResolver(),
		ResilienceResolver(),
	}
}
