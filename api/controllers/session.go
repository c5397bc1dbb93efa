package controllers

import (
	"net/http"

	"github.com/toolshop/storefront/api/middleware"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/internal/storefront"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
)

// mutation is the envelope returned by every state-changing endpoint. A
// storage failure after the in-memory change is reported as persisted=false
// instead of an error.
type mutation struct {
	Persisted bool `json:"persisted"`
	Result    any  `json:"result"`
}

func currentSession(r *http.Request) (*storefront.Session, error) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return sess, nil
}

// settle splits a mutator error into the persisted flag and a fatal error.
func settle(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if pkgerrors.IsPersistenceFailure(err) {
		return false, nil
	}
	return false, err
}

func productIDParam(r *http.Request) (int, error) {
	id, err := validators.ParsePathInt64(r, "productId")
	return int(id), err
}
