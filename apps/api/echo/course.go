package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc course.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses", authed...)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/overview", api.overview)
	cg.PUT("/order", api.reorder)

	// detail endpoints
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)

	// assignments
	cg.GET("/:id/assignments", api.queryAssignments)
	cg.POST("/:id/assignments", api.createAssignment)
	cg.PUT("/:id/assignments/order", api.reorderAssignments)
	cg.PUT("/:id/assignments/:assignmentId", api.updateAssignment)
	cg.DELETE("/:id/assignments/:assignmentId", api.destroyAssignment)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) overview(ctx echo.Context) error {
	overview, err := api.svc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing overview")
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) reorder(ctx echo.Context) error {
	var data course.Order
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err := api.svc.Reorder(ctx.Request().Context(), data.IDs); err != nil {
		return errors.Wrap(err, "reordering courses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	detail, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "retrieving course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryAssignments(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	assignments, err := api.svc.ListAssignments(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *courseApi) createAssignment(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.NewAssignment
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	a, err := api.svc.CreateAssignment(ctx.Request().Context(), courseID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *courseApi) reorderAssignments(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.Order
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.ReorderAssignments(ctx.Request().Context(), courseID, data.IDs); err != nil {
		return errors.Wrap(err, "reordering assignments")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) updateAssignment(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "assignmentId")
	if err != nil {
		return err
	}
	var data course.UpdateAssignment
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), courseID, id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *courseApi) destroyAssignment(ctx echo.Context) error {
	courseID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "assignmentId")
	if err != nil {
		return err
	}

	if err = api.svc.DeleteAssignment(ctx.Request().Context(), courseID, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
