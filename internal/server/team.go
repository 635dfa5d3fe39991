package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

func (s *Server) ListTeamMembers(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.teamSvc.List(c.Request.Context(), teamdomain.ListMemberRequest{
		Page: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Members, resp.PageInfo)
}

type inviteMemberRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (s *Server) InviteTeamMember(c *gin.Context) {
	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.teamSvc.Invite(c.Request.Context(), teamdomain.InviteRequest{
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        strings.ToUpper(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ChangeTeamMemberRole(c *gin.Context) {
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.teamSvc.ChangeRole(c.Request.Context(), teamdomain.ChangeRoleRequest{
		MemberID: strings.TrimSpace(c.Param("id")),
		Role:     teamdomain.Role(strings.ToUpper(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) RevokeTeamMember(c *gin.Context) {
	if err := s.teamSvc.Revoke(c.Request.Context(), teamdomain.RevokeRequest{
		MemberID: strings.TrimSpace(c.Param("id")),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"revoked": true})
}
