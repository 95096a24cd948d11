package handlers

import (
	"encoding/json"
	"errors"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	xhttp "github.com/bhadrakali/chit-ledger/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func param(ctx *xhttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}

// statusFor maps ledger sentinels onto HTTP statuses: missing records are
// 404, slot conflicts are 409, anything else is a plain validation failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrGroupNotFound),
		errors.Is(err, ledger.ErrMemberNotFound),
		errors.Is(err, ledger.ErrMembershipNotFound),
		errors.Is(err, ledger.ErrAllotmentNotFound),
		errors.Is(err, ledger.ErrPaymentRequestNotFound):
		return 404
	case errors.Is(err, ledger.ErrGroupFull),
		errors.Is(err, ledger.ErrTokenTaken),
		errors.Is(err, ledger.ErrMonthAllotted),
		errors.Is(err, ledger.ErrPaymentRequestClosed):
		return 409
	default:
		return 400
	}
}
