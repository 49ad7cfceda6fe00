package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/regroup/core/roster"
	sheetsvc "github.com/trezcool/regroup/services/sheet"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type classApi struct {
	svc      *roster.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, svc *roster.Service, validate *validator.Validate) {
	api := classApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/classes")
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/students", api.queryStudents)
	dg.POST("/distribute", api.distribute)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data roster.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	data.Clean()
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	filter := new(roster.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []roster.Student{})
	}
	ordering, err := bindOrdering(ctx, roster.StudentOrderings)
	if err != nil {
		return err
	}
	filter.Ordering = ordering

	students, err := api.svc.QueryStudents(ctx.Request().Context(), ctx.Param("id"), *filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// distribute answers with the saved Distribution, or with the result workbook when `format=xlsx`.
func (api *classApi) distribute(ctx echo.Context) error {
	var data roster.NewDistribution
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDistribution")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	dist, err := api.svc.Distribute(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "distributing class")
	}

	if ctx.QueryParam("format") == "xlsx" {
		var buf bytes.Buffer
		if err = sheetsvc.WriteResult(&buf, dist.Result); err != nil {
			return errors.Wrap(err, "writing result workbook")
		}
		ctx.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", dist.ChildClass.ID+".xlsx"))
		return ctx.Blob(http.StatusCreated, xlsxMIME, buf.Bytes())
	}
	return ctx.JSON(http.StatusCreated, dist)
}
