package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc/codes"
	"gorm.io/gorm"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/observability"
	"github.com/kbukum/faultkit/resilience"
	"github.com/kbukum/faultkit/validation"
)

func testLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json"}, "test"), &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

// nilPointerFailure returns the runtime error raised by dereferencing a nil
// pointer.
func nilPointerFailure() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(runtime.Error)
		}
	}()
	var p *struct{ n int }
	_ = p.n
	return nil
}

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestHTTPChain_Table(t *testing.T) {
	log, _ := testLogger()
	chain := NewHTTPChain(WithLogger(log))

	rawValidation := validator.New().Struct(signup{Email: "a@b.co"})

	tests := []struct {
		name       string
		err        error
		status     int
		code       int
		detail     string
		wantDetail bool
	}{
		{"business", apperrors.New(apperrors.KindNoActiveGame), http.StatusPreconditionFailed, 41201, "", false},
		{"business with detail", apperrors.New(apperrors.KindBadRequest).WithDetail("page must be positive"), http.StatusBadRequest, 40000, "page must be positive", true},
		{"wrapped business", fmt.Errorf("load: %w", apperrors.New(apperrors.KindEntityNotFound)), http.StatusNotFound, 40401, "", false},
		{"validation", validation.Struct(signup{Email: "nope"}), http.StatusBadRequest, 40000, "name: is required; email: must be a valid email address", true},
		{"raw validator", rawValidation, http.StatusBadRequest, 40000, "name: is required", true},
		{"pgx unique", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_email_key\""}, http.StatusConflict, 40901, "", false},
		{"pq foreign key", &pq.Error{Code: "23503"}, http.StatusConflict, 40901, "", false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, http.StatusConflict, 40901, "", false},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, http.StatusConflict, 40901, "", false},
		{"gorm duplicate", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), http.StatusConflict, 40901, "", false},
		{"marked integrity", apperrors.ErrDataIntegrity, http.StatusConflict, 40901, "", false},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, http.StatusInternalServerError, 50000, "", false},
		{"mysql other", &mysql.MySQLError{Number: 1045}, http.StatusInternalServerError, 50000, "", false},
		{"rate limited", resilience.ErrRateLimited, http.StatusTooManyRequests, 42900, "", false},
		{"bulkhead", resilience.ErrBulkheadFull, http.StatusTooManyRequests, 42901, "", false},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, 50400, "", false},
		{"exhausted", &resilience.ExhaustedError{Policy: "network", Attempts: 5, Err: errors.New("503")}, http.StatusBadGateway, 50200, "", false},
		{"illegal argument", apperrors.ErrIllegalArgument, http.StatusBadRequest, 40000, "", false},
		{"nil pointer", nilPointerFailure(), http.StatusInternalServerError, 50000, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := chain.Dispatch(context.Background(), tt.err, "/games/7")
			if resp.Status != tt.status {
				t.Errorf("status = %d, want %d", resp.Status, tt.status)
			}
			if resp.Payload.Code != tt.code {
				t.Errorf("code = %d, want %d", resp.Payload.Code, tt.code)
			}
			if resp.Payload.Path != "/games/7" {
				t.Errorf("path = %q", resp.Payload.Path)
			}
			if resp.Payload.Message == "" {
				t.Error("message must never be empty")
			}
			if tt.wantDetail {
				if resp.Payload.Detail == nil || *resp.Payload.Detail != tt.detail {
					t.Errorf("detail = %v, want %q", resp.Payload.Detail, tt.detail)
				}
			} else if resp.Payload.Detail != nil {
				t.Errorf("unexpected detail %q", *resp.Payload.Detail)
			}
		})
	}
}

func TestHTTPChain_DataIntegrityHidesDriverMessage(t *testing.T) {
	log, _ := testLogger()
	chain := NewHTTPChain(WithLogger(log))

	err := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_email_key\""}
	resp := chain.Dispatch(context.Background(), err, "/users")
	if strings.Contains(resp.Payload.Message, "users_email_key") {
		t.Errorf("driver message leaked: %q", resp.Payload.Message)
	}
	if resp.Payload.Message != apperrors.KindDuplicateEntry.DefaultMessage() {
		t.Errorf("expected fixed message, got %q", resp.Payload.Message)
	}
}

func TestHTTPChain_CatchAllDetailOptIn(t *testing.T) {
	log, _ := testLogger()
	failure := nilPointerFailure()

	hidden := NewHTTPChain(WithLogger(log)).Dispatch(context.Background(), failure, "/x")
	if hidden.Payload.Detail != nil {
		t.Errorf("detail must be absent by default, got %q", *hidden.Payload.Detail)
	}

	exposed := NewHTTPChain(WithLogger(log), WithExposeDetail(true)).Dispatch(context.Background(), failure, "/x")
	if exposed.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", exposed.Status)
	}
	if exposed.Payload.Detail == nil || *exposed.Payload.Detail != failure.Error() {
		t.Errorf("expected detail %q, got %v", failure.Error(), exposed.Payload.Detail)
	}
}

func TestHTTPChain_CustomClassifier(t *testing.T) {
	log, _ := testLogger()
	chain := NewHTTPChain(WithLogger(log), WithClassifier(convert.NewClassifier(convert.TokenRule)))

	resp := chain.Dispatch(context.Background(), convert.ErrTokenMissing, "/me")
	if resp.Status != http.StatusUnauthorized || resp.Payload.Code != 40103 {
		t.Errorf("expected TOKEN_MISSING, got %d %d", resp.Status, resp.Payload.Code)
	}
}

func TestChain_Deterministic(t *testing.T) {
	log, _ := testLogger()
	chain := NewHTTPChain(WithLogger(log))

	errs := []error{
		apperrors.New(apperrors.KindForbidden),
		&mysql.MySQLError{Number: 1062},
		errors.New("boom"),
		resilience.ErrBulkheadTimeout,
	}
	for _, err := range errs {
		first := chain.Dispatch(context.Background(), err, "/p")
		for i := 0; i < 5; i++ {
			again := chain.Dispatch(context.Background(), err, "/p")
			if again.Status != first.Status || again.Payload.Code != first.Payload.Code ||
				again.Payload.Message != first.Payload.Message || !reflect.DeepEqual(again.Payload.Detail, first.Payload.Detail) {
				t.Errorf("dispatch of %v not deterministic: %+v vs %+v", err, first, again)
			}
		}
	}
}

func TestChain_AtMostOneHandler(t *testing.T) {
	log, _ := testLogger()
	calls := map[string]int{}

	counting := func(name string, priority int) Handler[string] {
		return Handler[string]{
			Name:      name,
			Priority:  priority,
			CanHandle: func(error) bool { return true },
			Handle: func(err error, _ string) (string, *apperrors.BusinessError) {
				calls[name]++
				return name, apperrors.New(apperrors.KindBadRequest)
			},
		}
	}
	catchAll := counting("catch_all", -100)

	chain := NewChain(ProtocolHTTP, catchAll, []Handler[string]{
		counting("zeta", 5),
		counting("beta", 1),
		counting("alpha", 1),
	}, WithLogger(log))

	got := chain.Dispatch(context.Background(), errors.New("x"), "/")
	if got != "alpha" {
		t.Errorf("expected alpha (lowest priority, first by name), got %s", got)
	}

	total := 0
	for _, n := range calls {
		total += n
	}
	if total != 1 || calls["alpha"] != 1 {
		t.Errorf("expected exactly one handler call, got %v", calls)
	}

	want := []string{"alpha", "beta", "zeta", "catch_all"}
	if !reflect.DeepEqual(chain.Handlers(), want) {
		t.Errorf("order = %v, want %v", chain.Handlers(), want)
	}
}

func TestChain_CatchAllAlwaysLast(t *testing.T) {
	log, _ := testLogger()
	chain := NewHTTPChain(WithLogger(log))
	want := []string{NameBusiness, NameValidation, NameDataIntegrity, NameResilience, NameDefault}
	if !reflect.DeepEqual(chain.Handlers(), want) {
		t.Errorf("order = %v, want %v", chain.Handlers(), want)
	}
}

func TestChain_With(t *testing.T) {
	log, _ := testLogger()
	notFound := errors.New("no such game")

	custom := HTTPHandler(Resolver{
		Name:      "games",
		Priority:  2,
		CanHandle: func(err error) bool { return errors.Is(err, notFound) },
		Resolve: func(err error) Resolution {
			return Resolution{Fault: apperrors.Wrap(apperrors.KindEntityNotFound, "", err)}
		},
	})
	base := NewHTTPChain(WithLogger(log))
	chain := base.With(custom)

	if resp := chain.Dispatch(context.Background(), notFound, "/g"); resp.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.Status)
	}
	if resp := base.Dispatch(context.Background(), notFound, "/g"); resp.Status != http.StatusInternalServerError {
		t.Errorf("original chain must be unchanged, got %d", resp.Status)
	}
	want := []string{NameBusiness, NameValidation, NameDataIntegrity, "games", NameResilience, NameDefault}
	if !reflect.DeepEqual(chain.Handlers(), want) {
		t.Errorf("order = %v, want %v", chain.Handlers(), want)
	}
}

func TestChain_NilError(t *testing.T) {
	log, buf := testLogger()
	resp := NewHTTPChain(WithLogger(log)).Dispatch(context.Background(), nil, "/")
	if resp.Status != 0 || buf.Len() != 0 {
		t.Errorf("nil error should render nothing, got %+v", resp)
	}
}

func TestChain_LogsOnceWithFields(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   string
		kind    string
		handler string
	}{
		{"client fault", apperrors.New(apperrors.KindEntityNotFound), "warn", "ENTITY_NOT_FOUND", NameBusiness},
		{"server fault", errors.New("disk on fire"), "error", "INTERNAL_SERVER_ERROR", NameDefault},
		{"timeout", context.DeadlineExceeded, "error", "EXTERNAL_SERVICE_TIMEOUT", NameResilience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := testLogger()
			chain := NewGRPCChain(WithLogger(log))
			chain.Dispatch(context.Background(), tt.err, "/games.v1.Games/Get")

			recs := records(t, buf)
			if len(recs) != 1 {
				t.Fatalf("expected exactly one record, got %d", len(recs))
			}
			r := recs[0]
			if r["level"] != tt.level {
				t.Errorf("level = %v, want %s", r["level"], tt.level)
			}
			if r["kind"] != tt.kind {
				t.Errorf("kind = %v, want %s", r["kind"], tt.kind)
			}
			if r["handler"] != tt.handler {
				t.Errorf("handler = %v, want %s", r["handler"], tt.handler)
			}
			if r["protocol"] != "grpc" || r["path"] != "/games.v1.Games/Get" {
				t.Errorf("unexpected protocol/path %v %v", r["protocol"], r["path"])
			}
			if _, ok := r["code"].(float64); !ok {
				t.Errorf("missing numeric code: %v", r["code"])
			}
			if msg, _ := r["message"].(string); msg == "" {
				t.Error("missing message")
			}
		})
	}
}

func TestChain_RecordsMetrics(t *testing.T) {
	log, _ := testLogger()
	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	chain := NewHTTPChain(WithLogger(log), WithMetrics(metrics))
	chain.Dispatch(context.Background(), apperrors.New(apperrors.KindForbidden), "/a")
	chain.Dispatch(context.Background(), errors.New("x"), "/b")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "faults.total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("expected 2 recorded faults, got %d", total)
	}
}

func TestGRPCChain(t *testing.T) {
	log, _ := testLogger()
	chain := NewGRPCChain(WithLogger(log))

	tests := []struct {
		name string
		err  error
		code codes.Code
		desc string
	}{
		{"business", apperrors.WithMessage(apperrors.KindNoActiveGame, "no game"), codes.FailedPrecondition, "no game"},
		{"business detail", apperrors.New(apperrors.KindBadRequest).WithDetail("bad page"), codes.InvalidArgument, "bad page"},
		{"validation", validation.New().Required("name", "").Err(), codes.InvalidArgument, "validation failed: name: is required"},
		{"duplicate", &pq.Error{Code: "23505"}, codes.AlreadyExists, apperrors.KindDuplicateEntry.DefaultMessage()},
		{"rate limited", resilience.ErrRateLimited, codes.ResourceExhausted, apperrors.KindRateLimitExceeded.DefaultMessage()},
		{"unknown", errors.New("boom"), codes.Internal, apperrors.KindInternal.DefaultMessage()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := chain.Dispatch(context.Background(), tt.err, "/svc/Method")
			if st.Code() != tt.code {
				t.Errorf("code = %v, want %v", st.Code(), tt.code)
			}
			if st.Message() != tt.desc {
				t.Errorf("description = %q, want %q", st.Message(), tt.desc)
			}
		})
	}
}

func TestGRPCChain_CatchAllDetailOptIn(t *testing.T) {
	log, _ := testLogger()
	failure := nilPointerFailure()

	st := NewGRPCChain(WithLogger(log)).Dispatch(context.Background(), failure, "/svc/M")
	if st.Code() != codes.Internal || st.Message() != apperrors.KindInternal.DefaultMessage() {
		t.Errorf("unexpected status %v %q", st.Code(), st.Message())
	}

	st = NewGRPCChain(WithLogger(log), WithExposeDetail(true)).Dispatch(context.Background(), failure, "/svc/M")
	if st.Message() != failure.Error() {
		t.Errorf("expected exposed detail, got %q", st.Message())
	}
}

func TestBothProtocolsAgree(t *testing.T) {
	log, _ := testLogger()
	httpChain := NewHTTPChain(WithLogger(log))
	grpcChain := NewGRPCChain(WithLogger(log))

	errs := []error{
		apperrors.New(apperrors.KindDuplicateEntry),
		&mysql.MySQLError{Number: 1062},
		resilience.ErrBulkheadFull,
		validation.New().Required("x", "").Err(),
		errors.New("boom"),
	}
	for _, err := range errs {
		resp := httpChain.Dispatch(context.Background(), err, "/")
		st := grpcChain.Dispatch(context.Background(), err, "/")
		kind, ok := apperrors.KindFromCode(resp.Payload.Code)
		if !ok {
			t.Fatalf("unknown code %d", resp.Payload.Code)
		}
		if kind.GRPCCode() != st.Code() {
			t.Errorf("%v: http kind %s implies %v, grpc chain returned %v", err, kind, kind.GRPCCode(), st.Code())
		}
	}
}

func TestIsDataIntegrityViolation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{gorm.ErrForeignKeyViolated, true},
		{&pgconn.PgError{Code: "23503"}, true},
		{&pq.Error{Code: "23514"}, true},
		{&pq.Error{Code: "40001"}, false},
		{&mysql.MySQLError{Number: 1217}, true},
		{gorm.ErrRecordNotFound, false},
		{errors.New("duplicate key"), false},
	}
	for _, tt := range tests {
		if got := IsDataIntegrityViolation(tt.err); got != tt.want {
			t.Errorf("IsDataIntegrityViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPanicError(t *testing.T) {
	cause := errors.New("cause")
	if !errors.Is(&PanicError{Value: cause}, cause) {
		t.Error("expected panic error to unwrap to its error value")
	}
	if (&PanicError{Value: 42}).Unwrap() != nil {
		t.Error("non-error panic values do not unwrap")
	}
	if got := (&PanicError{Value: "boom"}).Error(); got != "panic: boom" {
		t.Errorf("unexpected message %q", got)
	}

	log, _ := testLogger()
	resp := NewHTTPChain(WithLogger(log)).Dispatch(context.Background(), &PanicError{Value: "boom"}, "/")
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.Status)
	}
}
