package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/pkg/response"
)

// ProjectHandler 项目相关的请求处理器
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler 实例
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create 创建新项目
// 项目和首个画框一起创建，前端拿到两个标识后直接跳转
// 路由: POST /api/v1/projects（需要认证）
func (h *ProjectHandler) Create(c *gin.Context) {
	email := c.GetString("email")

	result, err := h.projectService.Create(c.Request.Context(), email)
	if err != nil {
		response.InternalError(c, "创建项目失败")
		return
	}

	response.Created(c, result)
}

// Get 加载项目及其画框列表
// 路由: GET /api/v1/projects/:projectId（需要认证）
func (h *ProjectHandler) Get(c *gin.Context) {
	email := c.GetString("email")
	projectID := c.Param("projectId")

	project, err := h.projectService.Get(c.Request.Context(), projectID, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.ProjectNotFound(c)
		case errors.Is(err, service.ErrNotProjectOwner):
			response.Forbidden(c, "无权访问该项目")
		default:
			response.InternalError(c, "加载项目失败")
		}
		return
	}

	response.Success(c, project)
}

// List 获取当前用户的项目列表
// 路由: GET /api/v1/projects（需要认证）
func (h *ProjectHandler) List(c *gin.Context) {
	email := c.GetString("email")

	projects, err := h.projectService.List(c.Request.Context(), email)
	if err != nil {
		response.InternalError(c, "加载项目列表失败")
		return
	}

	response.Success(c, projects)
}

// Delete 删除项目
// 路由: DELETE /api/v1/projects/:projectId（需要认证）
func (h *ProjectHandler) Delete(c *gin.Context) {
	email := c.GetString("email")
	projectID := c.Param("projectId")

	if err := h.projectService.Delete(c.Request.Context(), projectID, email); err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.ProjectNotFound(c)
		case errors.Is(err, service.ErrNotProjectOwner):
			response.Forbidden(c, "无权操作该项目")
		default:
			response.InternalError(c, "删除项目失败")
		}
		return
	}

	response.NoContent(c)
}
