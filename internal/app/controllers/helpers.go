package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	authz "github.com/carebridge/carebridge/internal/app/auth"
	"github.com/carebridge/carebridge/internal/middleware"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps inbound partner files
const maxUploadBytes = 20 << 20

var timeNow = time.Now

var errUnauthenticated = fmt.Errorf("%w: no authenticated user on request", apperrors.ErrTokenInvalid)

// currentActor loads the caller set by JWTAuth, answering 401 when absent
func currentActor(ctx *gin.Context) (authz.Actor, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errUnauthenticated)
	}
	return actor, ok
}

// memberScope resolves the :id member path parameter and checks the caller
// may act on that member
func memberScope(ctx *gin.Context) (authz.Actor, int64, bool) {
	actor, ok := currentActor(ctx)
	if !ok {
		return actor, 0, false
	}
	memberID, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return actor, 0, false
	}
	if err := actor.CanAccessMember(memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return actor, 0, false
	}
	return actor, memberID, true
}

// readUpload returns the uploaded file named "file" from a multipart form, or
// the raw request body otherwise, with the filename it should be stored under
func readUpload(ctx *gin.Context, fallbackName string) (string, []byte, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxUploadBytes)

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("%w: multipart field \"file\" is required", apperrors.ErrBadRequest)
		}
		f, err := fileHeader.Open()
		if err != nil {
			return "", nil, fmt.Errorf("%w: cannot open upload: %v", apperrors.ErrBadRequest, err)
		}
		defer f.Close()
		body, err := io.ReadAll(f)
		if err != nil {
			return "", nil, fmt.Errorf("%w: cannot read upload: %v", apperrors.ErrBadRequest, err)
		}
		return fileHeader.Filename, body, nil
	}

	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: cannot read body: %v", apperrors.ErrBadRequest, err)
	}
	name := ctx.Query("filename")
	if name == "" {
		name = fallbackName
	}
	return name, body, nil
}
