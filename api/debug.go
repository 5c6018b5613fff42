package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thayfamily/checklive/internal/apierror"
)

// RecentMail lists the five newest messages, to check the mailbox token works.
func (a *Api) RecentMail(c *gin.Context) {
	if a.mailbox == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mailbox is not configured, set GOOGLE_REFRESH_TOKEN"})
		return
	}

	messages, err := a.mailbox.Recent(c.Request.Context(), 5)
	if err != nil {
		apiErr := apierror.NewAPIError(apierror.ErrUpstream, "could not read the mailbox", err.Error())
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"error": apiErr.Message, "details": apiErr.Details})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(messages), "messages": messages})
}

// DebugBrowser reports which Chromium executable a transfer would launch.
func (a *Api) DebugBrowser(c *gin.Context) {
	c.JSON(http.StatusOK, a.locate())
}
