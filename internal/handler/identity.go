package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/davidfromkent/coffee-ratings/internal/utils"
)

// IdentityHandler mints opaque per-device identity tokens. Clients
// store the token locally and send it with every submission; it is the
// sole key to editing or deleting their own reviews, so losing it means
// losing edit access.
type IdentityHandler struct {
	Secret string // signing secret for minted tokens
}

// Mint handles POST /v1/identity. It returns a fresh identity token and
// the device id embedded in it.
func (h *IdentityHandler) Mint(c echo.Context) error {
	token, deviceID, err := utils.NewIdentityToken(h.Secret)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mint identity token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"identity_token": token,
		"device_id":      deviceID,
	})
}
