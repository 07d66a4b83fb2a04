package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// パスの :shopId がトークンの担当店舗に含まれるか確認します。ADMINは全店舗OK。
func ShopScopeGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if role == RoleAdmin {
				return next(c)
			}

			shopID := c.Param("shopId")
			shops, _ := c.Get(CtxShopsKey).([]string)
			for _, s := range shops {
				if s == shopID {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON("forbidden for this shop"))
		}
	}
}
