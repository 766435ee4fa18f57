package me

import (
	"net/http"

	"github.com/tendant/simple-admission/internal/http/features/common"
	"github.com/tendant/simple-admission/internal/http/middleware"
	"github.com/tendant/simple-admission/internal/httputil"
)

// GetMe returns the current member's profile.
// GET /v1/me
//
// Must be mounted behind Auth and RequireActive.
func GetMe(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.GetMember(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httputil.JSON(w, http.StatusOK, common.NewMemberResponse(member))
}
