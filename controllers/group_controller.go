package controllers

import (
	"net/http"
	"strconv"
	"time"

	"chat-server/models"
	"chat-server/repository"

	"github.com/gin-gonic/gin"
)

// GroupController is the group membership CRUD surface. The delivery
// engine only ever reads groups; all membership writes happen here.
type GroupController struct {
	Groups repository.GroupRepository
	Users  repository.UserRepository
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user data"})
		return nil, false
	}
	return user, true
}

func (g *GroupController) loadGroup(c *gin.Context) (*models.Group, bool) {
	id, err := strconv.ParseUint(c.Param("group_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return nil, false
	}
	group, err := g.Groups.FindByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return nil, false
	}
	return group, true
}

// Create 创建群组
func (g *GroupController) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var input struct {
		Name                    string  `json:"name" binding:"required"`
		Description             *string `json:"description"`
		MemberIDs               []uint  `json:"member_ids"`
		IsPublic                bool    `json:"is_public"`
		AllowMembersToAddOthers bool    `json:"allow_members_to_add_others"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	members := append([]uint{}, input.MemberIDs...)
	if !containsID(members, user.ID) {
		members = append(members, user.ID)
	}
	if found, err := g.Users.FindByIDs(members); err != nil || len(found) != len(members) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more members not found"})
		return
	}

	group := models.Group{
		Name:                    input.Name,
		Description:             input.Description,
		CreatedBy:               user.ID,
		Admins:                  []uint{user.ID},
		Members:                 members,
		IsPublic:                input.IsPublic,
		AllowMembersToAddOthers: input.AllowMembersToAddOthers,
	}
	if err := g.Groups.Create(&group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Group created successfully", "group": group})
}

// MyGroups 获取当前用户的群组
func (g *GroupController) MyGroups(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	groups, err := g.Groups.FindGroupsContaining(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// Get 获取群组详情
func (g *GroupController) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if !group.IsMember(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// AddMembers 添加群组成员
func (g *GroupController) AddMembers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if !group.IsMember(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this group"})
		return
	}
	if !group.IsAdmin(user.ID) && !group.AllowMembersToAddOthers {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to add members"})
		return
	}

	var input struct {
		MemberIDs []uint `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if found, err := g.Users.FindByIDs(input.MemberIDs); err != nil || len(found) != len(input.MemberIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "One or more users not found"})
		return
	}

	for _, id := range input.MemberIDs {
		group.AddMember(id)
	}
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Members added successfully", "group": group})
}

// RemoveMember 移除群组成员（仅管理员，群主不可移除）
func (g *GroupController) RemoveMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if !group.IsAdmin(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can remove members"})
		return
	}

	memberID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if uint(memberID) == group.CreatedBy {
		c.JSON(http.StatusForbidden, gin.H{"error": "The group creator cannot be removed"})
		return
	}
	if !group.IsMember(uint(memberID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User is not a member"})
		return
	}

	group.RemoveMember(uint(memberID))
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully", "group": group})
}

// Promote 提升管理员
func (g *GroupController) Promote(c *gin.Context) {
	g.changeAdmin(c, true)
}

// Demote 取消管理员（群主不可取消）
func (g *GroupController) Demote(c *gin.Context) {
	g.changeAdmin(c, false)
}

func (g *GroupController) changeAdmin(c *gin.Context, promote bool) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if !group.IsAdmin(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can manage admins"})
		return
	}

	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if !promote && uint(targetID) == group.CreatedBy {
		c.JSON(http.StatusForbidden, gin.H{"error": "The group creator cannot be demoted"})
		return
	}
	if !group.IsMember(uint(targetID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User is not a member"})
		return
	}

	if promote {
		group.Promote(uint(targetID))
	} else {
		group.Demote(uint(targetID))
	}
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admins updated successfully", "group": group})
}

// Mute 屏蔽群组通知
func (g *GroupController) Mute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if !group.IsMember(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this group"})
		return
	}

	var input struct {
		// Minutes to mute for; omit for forever.
		Duration *int64 `json:"duration"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var until *time.Time
	if input.Duration != nil {
		t := time.Now().Add(time.Duration(*input.Duration) * time.Minute)
		until = &t
	}
	group.SetMute(user.ID, until)
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group muted"})
}

// Unmute 取消屏蔽
func (g *GroupController) Unmute(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	group.ClearMute(user.ID)
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group unmuted"})
}

// Leave 退出群组（群主不可退出）
func (g *GroupController) Leave(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	group, ok := g.loadGroup(c)
	if !ok {
		return
	}
	if user.ID == group.CreatedBy {
		c.JSON(http.StatusForbidden, gin.H{"error": "The group creator cannot leave"})
		return
	}
	if !group.IsMember(user.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not a member of this group"})
		return
	}
	group.RemoveMember(user.ID)
	if err := g.Groups.Update(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left group successfully"})
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
