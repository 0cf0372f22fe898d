package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/service"
)

type MemberController struct {
	MemberService *service.MemberService
}

type memberQuery struct {
	Q     string `schema:"q"`
	Limit int    `schema:"limit"`
}

// Search feeds the assignment picker.
func (c *MemberController) Search(ctx *gin.Context) {
	query := memberQuery{Limit: helpers.MemberSearchLimit}
	if err := queryDecoder.Decode(&query, ctx.Request.URL.Query()); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	members, err := c.MemberService.Search(ctx.Request.Context(), query.Q, query.Limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"members": members,
		},
	})
}
