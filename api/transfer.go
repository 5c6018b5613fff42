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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/thayfamily/checklive/api/model"
	"github.com/thayfamily/checklive/internal/apierror"
)

// TransferTeam blocks until the transfer finishes or its budget runs out.
func (a *Api) TransferTeam(c *gin.Context) {
	var req model2.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model2.ErrorResponse("invalid request body"))
		return
	}

	if err := req.ValidateEmailRequest(); err != nil {
		c.JSON(http.StatusBadRequest, model2.ErrorResponse(err.Error()))
		return
	}

	out := a.checklive.TransferTeam(c.Request.Context(), req.Email)
	c.JSON(apierror.TransferHTTPStatus(out), out)
}

func (a *Api) TransferStatus(c *gin.Context) {
	holder, busy := a.checklive.TransferStatus(c.Request.Context())
	if !busy {
		c.JSON(http.StatusOK, gin.H{"busy": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"busy":        true,
		"owner":       holder.Owner,
		"started":     holder.Started,
		"running_for": time.Since(holder.Started).Round(time.Second).String(),
		"remote":      holder.Remote,
	})
}
