package errors

import (
	"net/http"
	"sort"

	"google.golang.org/grpc/codes"
)

// Kind is a member of the closed business error set. Every failure that
// leaves the service is eventually expressed as one Kind.
type Kind string

// Request errors
const (
	KindBadRequest            Kind = "BAD_REQUEST"
	KindInvalidOperation      Kind = "INVALID_OPERATION"
	KindBusinessRuleViolation Kind = "BUSINESS_RULE_VIOLATION"
	KindInvalidFileFormat     Kind = "INVALID_FILE_FORMAT"
	KindFileTooLarge          Kind = "FILE_TOO_LARGE"
)

// Authentication errors
const (
	KindUnauthorized                Kind = "UNAUTHORIZED"
	KindTokenExpired                Kind = "TOKEN_EXPIRED"
	KindTokenInvalid                Kind = "TOKEN_INVALID"
	KindTokenMissing                Kind = "TOKEN_MISSING"
	KindAuthenticationFailed        Kind = "AUTHENTICATION_FAILED"
	KindTokenIntrospectFailed       Kind = "TOKEN_INTROSPECT_FAILED"
	KindTokenRefreshFailed          Kind = "TOKEN_REFRESH_FAILED"
	KindTokenInvalidOrRefreshFailed Kind = "TOKEN_INVALID_OR_REFRESH_FAILED"
	KindTokenCheckFailed            Kind = "TOKEN_CHECK_FAILED"
	KindSessionExpired              Kind = "SESSION_EXPIRED"
	KindSessionInvalid              Kind = "SESSION_INVALID"
	KindSessionNotFound             Kind = "SESSION_NOT_FOUND"
)

// Authorization errors
const (
	KindForbidden               Kind = "FORBIDDEN"
	KindInsufficientPermissions Kind = "INSUFFICIENT_PERMISSIONS"
	KindAuthorizationFailed     Kind = "AUTHORIZATION_FAILED"
)

// Resource errors
const (
	KindNotFound                 Kind = "NOT_FOUND"
	KindEntityNotFound           Kind = "ENTITY_NOT_FOUND"
	KindFileNotFound             Kind = "FILE_NOT_FOUND"
	KindConflict                 Kind = "CONFLICT"
	KindDuplicateEntry           Kind = "DUPLICATE_ENTRY"
	KindOptimisticLockingFailure Kind = "OPTIMISTIC_LOCKING_FAILURE"
)

// Precondition errors
const (
	KindUserNotLoggedIn Kind = "USER_NOT_LOGGED_IN"
	KindNoActiveGame    Kind = "NO_ACTIVE_GAME"
)

// Resilience errors
const (
	KindRateLimitExceeded      Kind = "RATE_LIMIT_EXCEEDED"
	KindBulkheadFull           Kind = "BULKHEAD_FULL"
	KindExternalServiceError   Kind = "EXTERNAL_SERVICE_ERROR"
	KindExternalServiceTimeout Kind = "EXTERNAL_SERVICE_TIMEOUT"
)

// Internal errors
const (
	KindInternal          Kind = "INTERNAL_SERVER_ERROR"
	KindFileUploadError   Kind = "FILE_UPLOAD_ERROR"
	KindFileDownloadError Kind = "FILE_DOWNLOAD_ERROR"
	KindLogoutFailed      Kind = "LOGOUT_FAILED"
)

// Entry is the catalog record for one Kind.
type Entry struct {
	Kind Kind
	// Code is the public numeric code. Assigned codes never change meaning.
	Code       int
	Message    string
	HTTPStatus int
	GRPCCode   codes.Code
}

// catalog is append-only: new kinds get new codes, existing codes are never
// reassigned.
var catalog = map[Kind]Entry{
	KindBadRequest:            {KindBadRequest, 40000, "Bad request.", http.StatusBadRequest, codes.InvalidArgument},
	KindInvalidOperation:      {KindInvalidOperation, 40001, "The operation is not allowed.", http.StatusBadRequest, codes.InvalidArgument},
	KindBusinessRuleViolation: {KindBusinessRuleViolation, 40002, "The request violates a business rule.", http.StatusBadRequest, codes.InvalidArgument},
	KindInvalidFileFormat:     {KindInvalidFileFormat, 40003, "The file format is not supported.", http.StatusBadRequest, codes.InvalidArgument},
	KindFileTooLarge:          {KindFileTooLarge, 40004, "The file exceeds the size limit.", http.StatusBadRequest, codes.InvalidArgument},

	KindUnauthorized:                {KindUnauthorized, 40100, "Authentication required.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenExpired:                {KindTokenExpired, 40101, "Your session has expired. Please log in again.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenInvalid:                {KindTokenInvalid, 40102, "Invalid authentication token.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenMissing:                {KindTokenMissing, 40103, "Authentication token is missing.", http.StatusUnauthorized, codes.Unauthenticated},
	KindAuthenticationFailed:        {KindAuthenticationFailed, 40104, "Authentication failed.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenIntrospectFailed:       {KindTokenIntrospectFailed, 40105, "Token introspection failed.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenRefreshFailed:          {KindTokenRefreshFailed, 40106, "Token refresh failed.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenInvalidOrRefreshFailed: {KindTokenInvalidOrRefreshFailed, 40107, "Token is invalid and could not be refreshed.", http.StatusUnauthorized, codes.Unauthenticated},
	KindTokenCheckFailed:            {KindTokenCheckFailed, 40108, "Token check failed.", http.StatusUnauthorized, codes.Unauthenticated},
	KindSessionExpired:              {KindSessionExpired, 40110, "Session has expired.", http.StatusUnauthorized, codes.Unauthenticated},
	KindSessionInvalid:              {KindSessionInvalid, 40111, "Session is invalid.", http.StatusUnauthorized, codes.Unauthenticated},
	KindSessionNotFound:             {KindSessionNotFound, 40112, "Session was not found.", http.StatusUnauthorized, codes.Unauthenticated},

	KindForbidden:               {KindForbidden, 40300, "You don't have permission to perform this action.", http.StatusForbidden, codes.PermissionDenied},
	KindInsufficientPermissions: {KindInsufficientPermissions, 40301, "Insufficient permissions.", http.StatusForbidden, codes.PermissionDenied},
	KindAuthorizationFailed:     {KindAuthorizationFailed, 40302, "Authorization failed.", http.StatusForbidden, codes.PermissionDenied},

	KindNotFound:       {KindNotFound, 40400, "The requested resource was not found.", http.StatusNotFound, codes.NotFound},
	KindEntityNotFound: {KindEntityNotFound, 40401, "The requested entity was not found.", http.StatusNotFound, codes.NotFound},
	KindFileNotFound:   {KindFileNotFound, 40402, "The requested file was not found.", http.StatusNotFound, codes.NotFound},

	KindConflict:                 {KindConflict, 40900, "The request conflicts with the current state of the resource.", http.StatusConflict, codes.AlreadyExists},
	KindDuplicateEntry:           {KindDuplicateEntry, 40901, "A record with these details already exists.", http.StatusConflict, codes.AlreadyExists},
	KindOptimisticLockingFailure: {KindOptimisticLockingFailure, 40902, "The resource was modified concurrently. Please retry.", http.StatusConflict, codes.AlreadyExists},

	KindUserNotLoggedIn: {KindUserNotLoggedIn, 41200, "User is not logged in.", http.StatusPreconditionFailed, codes.FailedPrecondition},
	KindNoActiveGame:    {KindNoActiveGame, 41201, "There is no active game.", http.StatusPreconditionFailed, codes.FailedPrecondition},

	KindRateLimitExceeded: {KindRateLimitExceeded, 42900, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests, codes.ResourceExhausted},
	KindBulkheadFull:      {KindBulkheadFull, 42901, "The service is busy. Please try again.", http.StatusTooManyRequests, codes.ResourceExhausted},

	KindInternal:          {KindInternal, 50000, "An unexpected error occurred. Please try again or contact support.", http.StatusInternalServerError, codes.Internal},
	KindFileUploadError:   {KindFileUploadError, 50001, "The file could not be uploaded.", http.StatusInternalServerError, codes.NotFound},
	KindFileDownloadError: {KindFileDownloadError, 50002, "The file could not be downloaded.", http.StatusInternalServerError, codes.NotFound},
	KindLogoutFailed:      {KindLogoutFailed, 50003, "Logout failed.", http.StatusInternalServerError, codes.Internal},

	KindExternalServiceError:   {KindExternalServiceError, 50200, "An upstream service encountered an error. Please try again.", http.StatusBadGateway, codes.Unavailable},
	KindExternalServiceTimeout: {KindExternalServiceTimeout, 50400, "An upstream service timed out. Please try again.", http.StatusGatewayTimeout, codes.Unavailable},
}

var byCode = func() map[int]Kind {
	m := make(map[int]Kind, len(catalog))
	for k, e := range catalog {
		if prev, dup := m[e.Code]; dup {
			panic("errors: code " + string(k) + " collides with " + string(prev))
		}
		m[e.Code] = k
	}
	return m
}()

// Lookup returns the catalog entry for kind. Kinds outside the closed set
// resolve to the INTERNAL_SERVER_ERROR entry.
func Lookup(kind Kind) Entry {
	if e, ok := catalog[kind]; ok {
		return e
	}
	return catalog[KindInternal]
}

// Valid reports whether kind belongs to the catalog.
func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// Code returns the public numeric code of the kind.
func (k Kind) Code() int { return Lookup(k).Code }

// HTTPStatus returns the request-protocol status of the kind.
func (k Kind) HTTPStatus() int { return Lookup(k).HTTPStatus }

// GRPCCode returns the RPC status code of the kind.
func (k Kind) GRPCCode() codes.Code { return Lookup(k).GRPCCode }

// DefaultMessage returns the catalog message of the kind.
func (k Kind) DefaultMessage() string { return Lookup(k).Message }

// KindFromCode resolves a numeric code back to its kind.
func KindFromCode(code int) (Kind, bool) {
	k, ok := byCode[code]
	return k, ok
}

// Kinds returns every catalog kind ordered by numeric code.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return catalog[out[i]].Code < catalog[out[j]].Code })
	return out
}
