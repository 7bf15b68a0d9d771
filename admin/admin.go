// Package admin 通过 HTTP 暴露日志注册表的运行时管理接口：查看域、调整级别、增删域。
package admin

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/windofthesky/mysql-router/logging"
	"github.com/windofthesky/mysql-router/response"
	"github.com/windofthesky/mysql-router/xerrors"
)

// LevelRequest 是级别修改接口的请求体。
type LevelRequest struct {
	Level string `json:"level" binding:"required"`
}

// HandlerInfo 描述一个已注册的输出端。
type HandlerInfo struct {
	Index int           `json:"index"`
	Type  string        `json:"type"`
	Level logging.Level `json:"level"`
	Path  string        `json:"path,omitempty"`
}

type api struct {
	reg *logging.Registry
	log logging.DomainLogger
}

// Register 在 router 下挂载 /log 路由组。
func Register(router gin.IRouter, r *logging.Registry) {
	a := &api{reg: r, log: r.Logger("admin")}

	g := router.Group("/log")
	g.GET("/domains", a.listDomains)
	g.GET("/domains/:name", a.getDomain)
	g.POST("/domains/:name", a.registerDomain)
	g.DELETE("/domains/:name", a.unregisterDomain)
	g.PUT("/domains/:name/level", a.setDomainLevel)
	g.PUT("/level", a.setLevel)
	g.GET("/handlers", a.listHandlers)
}

func (a *api) listDomains(c *gin.Context) {
	response.Success(c, a.reg.Domains())
}

func (a *api) getDomain(c *gin.Context) {
	name := c.Param("name")
	for _, d := range a.reg.Domains() {
		if d.Name == name {
			response.Success(c, d)
			return
		}
	}
	response.Error(c, xerrors.NotFound("log domain is not registered").WithDetail("domain=%s", name))
}

func (a *api) registerDomain(c *gin.Context) {
	name := c.Param("name")
	if err := a.reg.RegisterDomain(name); err != nil {
		response.Error(c, err)
		return
	}
	if err := a.reg.AttachHandlers(); err != nil {
		response.Error(c, err)
		return
	}
	a.log.Info("log domain registered: %s", name)
	response.SuccessWithStatus(c, http.StatusCreated, gin.H{"name": name})
}

func (a *api) unregisterDomain(c *gin.Context) {
	name := c.Param("name")
	if err := a.reg.UnregisterDomain(name); err != nil {
		response.Error(c, err)
		return
	}
	a.log.Info("log domain unregistered: %s", name)
	response.Success(c, nil)
}

func (a *api) setDomainLevel(c *gin.Context) {
	name := c.Param("name")
	level, ok := a.bindLevel(c)
	if !ok {
		return
	}
	if err := a.reg.SetDomainLogLevel(name, level); err != nil {
		response.Error(c, err)
		return
	}
	if err := a.reg.AttachHandlers(); err != nil {
		response.Error(c, err)
		return
	}
	a.log.Info("log level of domain %s set to %s", name, level)
	response.Success(c, logging.DomainInfo{Name: name, Level: level})
}

func (a *api) setLevel(c *gin.Context) {
	level, ok := a.bindLevel(c)
	if !ok {
		return
	}
	if err := a.reg.SetLogLevel(level); err != nil {
		response.Error(c, err)
		return
	}
	a.log.Info("log level of all domains set to %s", level)
	response.Success(c, a.reg.Domains())
}

func (a *api) listHandlers(c *gin.Context) {
	handlers := a.reg.Handlers()
	out := make([]HandlerInfo, 0, len(handlers))
	for i, h := range handlers {
		info := HandlerInfo{Index: i, Type: handlerType(h), Level: h.Level()}
		if fh, ok := h.(*logging.FileHandler); ok {
			info.Path = fh.Path()
		}
		out = append(out, info)
	}
	response.Success(c, out)
}

func (a *api) bindLevel(c *gin.Context) (logging.Level, bool) {
	var req LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg("invalid request body").WithDetail("%v", err))
		return 0, false
	}
	level, err := logging.ParseLevel(req.Level)
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	return level, true
}

func handlerType(h logging.Handler) string {
	switch h.(type) {
	case *logging.FileHandler:
		return "file"
	case *logging.StreamHandler:
		return "stream"
	default:
		return reflect.TypeOf(h).String()
	}
}
