// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nvquang/altair/internal/platform/apperr"
	"github.com/nvquang/altair/internal/platform/ctxutil"
	"github.com/nvquang/altair/internal/platform/sec"
	"github.com/nvquang/altair/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Actor extracts the authenticated actor from the request context.

Returns nil if the request is not authenticated.
*/
func Actor(request *http.Request) *sec.Actor {
	return ctxutil.GetActor(request.Context())
}

/*
RequiredActor ensures the request is authenticated and returns the actor.

Returns:
  - *sec.Actor: The authenticated principal
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredActor(request *http.Request) (*sec.Actor, error) {

	// Get the actor from context
	actor := ctxutil.GetActor(request.Context())

	// If the request is not authenticated, return an error
	if actor == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return actor, nil
}

/*
BearerToken extracts the opaque bearer token from the Authorization header.

The scheme is matched case-insensitively, mirroring what the authentication
middleware accepts, so any request that authenticated also yields its token
here. Returns an empty string when the header is absent or malformed — the
caller decides whether anonymous access is acceptable.
*/
func BearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
