package slideshow

import "github.com/labstack/echo/v4"

type Handler interface {
	Index() echo.HandlerFunc
	Generate() echo.HandlerFunc
	GetStatus() echo.HandlerFunc
	ServeVideo() echo.HandlerFunc
}
