package web

import (
	"github.com/gin-gonic/gin"
)

// HomePageData represents data for the home page
type HomePageData struct {
	TemplateData
	MediaSerial uint64
	AjaxSerial  uint64
}

func (s *WebServer) homePage(c *gin.Context) {
	data := HomePageData{
		TemplateData: s.getBaseTemplateData(c, "Home"),
		MediaSerial:  s.Serials.MediaSerial(),
		AjaxSerial:   s.Serials.AjaxSerial(),
	}

	s.renderTemplate(c, "home.html", data)
}
