package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	profiles service.ProfileService
	log      *zap.Logger
}

func NewUserHandler(profiles service.ProfileService, log *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, log: log}
}

type PublicUserResponse struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	University  *string `json:"university"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	user, err := h.profiles.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err, "user not found")
	}
	resp := PublicUserResponse{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    strPtrOrNil(user.PhotoURL),
		University:  strPtrOrNil(user.University),
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
