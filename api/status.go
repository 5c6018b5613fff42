/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/thayfamily/checklive/api/model"
	"github.com/thayfamily/checklive/internal/apierror"
	"github.com/thayfamily/checklive/model"
)

// CheckStatus reports whether the team of the given customer is alive. A dead team
// without any replacement is an ordinary answer, not a server fault, so it comes back
// as 200 with status "error".
func (a *Api) CheckStatus(c *gin.Context) {
	var req model2.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model2.ErrorResponse("invalid request body"))
		return
	}

	if err := req.ValidateEmailRequest(); err != nil {
		c.JSON(http.StatusBadRequest, model2.ErrorResponse(err.Error()))
		return
	}

	report, err := a.checklive.CheckStatus(c.Request.Context(), req.Email)
	if errors.Is(err, model.ErrNoReplacement) {
		c.JSON(http.StatusOK, model2.ErrorResponse(err.Error()))
		return
	}
	if err != nil {
		apiErr := apierror.FromLookupError(err)
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), model2.ErrorResponse(apiErr.Message))
		return
	}

	c.JSON(http.StatusOK, model2.NewStatusResponse(report))
}
