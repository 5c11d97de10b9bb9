package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edufi/backend/core/lesson"
	"github.com/edufi/backend/core/user"
)

type lessonApi struct {
	svc     *lesson.Service
	userSvc *user.Service
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *lesson.Service, userSvc *user.Service) {
	api := lessonApi{svc: svc, userSvc: userSvc}

	lg := g.Group("/lessons", jwt)
	teacherOrAdmin := roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	lg.GET("", api.query)
	lg.POST("", api.create, teacherOrAdmin)
	lg.GET("/teacher", api.queryOwn, teacherOrAdmin)
	lg.GET("/enrolled", api.queryEnrolled)

	dg := lg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/enroll", api.enroll)

	mg := dg.Group("/modules")
	mg.GET("", api.queryModules)
	mg.POST("", api.createModule, teacherOrAdmin)
	mg.GET("/:module_id", api.retrieveModule)
	mg.PATCH("/:module_id", api.updateModule, teacherOrAdmin)
	mg.DELETE("/:module_id", api.destroyModule, teacherOrAdmin)
}

func (api *lessonApi) query(ctx echo.Context) error {
	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lessons, err := api.svc.Query(ctx.Request().Context(), ctxUsr, filter, bindPaging(ctx))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	les, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *lessonApi) queryOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lessons, err := api.svc.QueryOwn(ctx.Request().Context(), ctxUsr, bindPaging(ctx))
	if err != nil {
		return errors.Wrap(err, "querying own lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) queryEnrolled(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lessons, err := api.svc.QueryEnrolled(ctx.Request().Context(), ctxUsr, bindPaging(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrolled lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	detail, err := api.svc.GetDetail(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return err
	}
	if detail.Modules == nil {
		detail.Modules = []lesson.Module{}
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *lessonApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data lesson.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	les, err := api.svc.Update(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) enroll(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// Modules

func (api *lessonApi) queryModules(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mods, err := api.svc.QueryModules(ctx.Request().Context(), ctxUsr, id, bindPaging(ctx))
	if err != nil {
		return err
	}
	if mods == nil {
		mods = []lesson.Module{}
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *lessonApi) createModule(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data lesson.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mod, err := api.svc.CreateModule(ctx.Request().Context(), ctxUsr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *lessonApi) retrieveModule(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	moduleID, err := pathID(ctx, "module_id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mod, err := api.svc.GetModule(ctx.Request().Context(), ctxUsr, id, moduleID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *lessonApi) updateModule(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	moduleID, err := pathID(ctx, "module_id")
	if err != nil {
		return err
	}

	var data lesson.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	mod, err := api.svc.UpdateModule(ctx.Request().Context(), ctxUsr, id, moduleID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *lessonApi) destroyModule(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	moduleID, err := pathID(ctx, "module_id")
	if err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteModule(ctx.Request().Context(), ctxUsr, id, moduleID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
