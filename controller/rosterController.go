package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/service"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type RosterController struct {
	PublicationService  *service.PublicationService
	ConfirmationService *service.ConfirmationService
	RosterService       *service.RosterService
	MemberService       *service.MemberService
	Lang                string
	Location            *time.Location
}

type listQuery struct {
	From     string `schema:"from"`
	Date     string `schema:"date"`
	Upcoming bool   `schema:"upcoming"`
}

type publishQuery struct {
	NotifyUnchanged bool `schema:"notifyUnchanged"`
}

type findOneQuery struct {
	Lang string `schema:"lang"`
}

// Publish creates a roster on POST and edits the one in the path on PUT.
func (c *RosterController) Publish(ctx *gin.Context) {
	actor, err := c.actor(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var query publishQuery
	if err := queryDecoder.Decode(&query, ctx.Request.URL.Query()); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	var input service.RosterInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	opts := service.PublishOptions{NotifyUnchanged: query.NotifyUnchanged}
	status := http.StatusCreated
	if ctx.Param("id") != "" {
		rosterID, ok := rosterIDParam(ctx)
		if !ok {
			return
		}
		opts.RosterID = rosterID
		status = http.StatusOK
	}

	res, err := c.PublicationService.Publish(ctx.Request.Context(), actor, input, opts)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(status, gin.H{
		"data": res,
	})
}

func (c *RosterController) Retire(ctx *gin.Context) {
	actor, err := c.actor(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	rosterID, ok := rosterIDParam(ctx)
	if !ok {
		return
	}

	err = c.RosterService.Retire(ctx.Request.Context(), actor, rosterID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *RosterController) FindMany(ctx *gin.Context) {
	var query listQuery
	if err := queryDecoder.Decode(&query, ctx.Request.URL.Query()); err != nil {
		respondBadRequest(ctx, err)
		return
	}

	if query.Upcoming && query.From == "" {
		loc := c.Location
		if loc == nil {
			loc = time.UTC
		}
		query.From = helpers.Today(loc)
	}

	var (
		rosters []*entity.Roster
		err     error
	)
	if query.Date != "" {
		rosters, err = c.RosterService.FindManyByServiceDate(ctx.Request.Context(), query.Date)
	} else {
		rosters, err = c.RosterService.FindManyFromDate(ctx.Request.Context(), query.From)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"rosters": rosters,
		},
	})
}

// FindOne returns the roster with the projection for the calling member and
// a telegram-ready summary.
func (c *RosterController) FindOne(ctx *gin.Context) {
	rosterID, ok := rosterIDParam(ctx)
	if !ok {
		return
	}

	var query findOneQuery
	if err := queryDecoder.Decode(&query, ctx.Request.URL.Query()); err != nil {
		respondBadRequest(ctx, err)
		return
	}
	lang := query.Lang
	if lang == "" {
		lang = c.Lang
	}

	roster, projection, err := c.RosterService.ProjectByID(ctx.Request.Context(), rosterID, memberID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"roster":     roster,
			"projection": projection,
			"summary":    roster.SummaryString(lang),
		},
	})
}

func (c *RosterController) Confirm(ctx *gin.Context) {
	rosterID, ok := rosterIDParam(ctx)
	if !ok {
		return
	}

	projection, err := c.ConfirmationService.Confirm(ctx.Request.Context(), rosterID, memberID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": projection,
	})
}

func (c *RosterController) Decline(ctx *gin.Context) {
	rosterID, ok := rosterIDParam(ctx)
	if !ok {
		return
	}

	projection, err := c.ConfirmationService.Decline(ctx.Request.Context(), rosterID, memberID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": projection,
	})
}

// Feed streams projection updates for the calling member as server-sent events.
func (c *RosterController) Feed(ctx *gin.Context) {
	updates, err := c.RosterService.Subscribe(ctx.Request.Context(), memberID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Stream(func(w io.Writer) bool {
		update, ok := <-updates
		if !ok {
			return false
		}
		ctx.SSEvent("roster", update)
		return true
	})
}

// actor resolves the calling member. Unknown callers get an actor without a
// role, which no capability check accepts.
func (c *RosterController) actor(ctx *gin.Context) (service.Actor, error) {
	id := memberID(ctx)
	if id == "" {
		return service.Actor{}, nil
	}

	member, err := c.MemberService.Resolve(ctx.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		return service.Actor{ID: id}, nil
	}
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: member.ID, Role: member.Role}, nil
}

func memberID(ctx *gin.Context) string {
	return strings.TrimSpace(ctx.GetHeader(helpers.MemberIDHeader))
}

func rosterIDParam(ctx *gin.Context) (bson.ObjectID, bool) {
	rosterID, err := bson.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		respondError(ctx, service.ErrNotFound)
		return bson.ObjectID{}, false
	}
	return rosterID, true
}
