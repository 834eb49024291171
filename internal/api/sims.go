package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/san-kum/ctrlsim/internal/dynamo"
	"github.com/san-kum/ctrlsim/internal/rig"
	"github.com/san-kum/ctrlsim/internal/sim"
)

type valueRequest struct {
	Value *float64 `json:"value"`
}

func (s *Server) registerSimEndpoints(rest *echo.Echo) {
	group := rest.Group("/sims")

	group.GET("/", s.getSims)
	group.GET("/:"+urlParamId+"/", s.getSim)
	group.POST("/:"+urlParamId+"/start/", s.startSim)
	group.POST("/:"+urlParamId+"/stop/", s.stopSim)
	group.POST("/:"+urlParamId+"/reset/", s.resetSim)
	group.PUT("/:"+urlParamId+"/params/:"+urlParamName+"/", s.setParam)
	group.POST("/:"+urlParamId+"/events/:"+urlParamName+"/", s.triggerEvent)
	group.PUT("/:"+urlParamId+"/mode/:"+urlParamMode+"/", s.setMode)
	group.PUT("/:"+urlParamId+"/manual/", s.setManual)
	group.PUT("/:"+urlParamId+"/gains/", s.setGains)
	group.PUT("/:"+urlParamId+"/timescale/", s.setTimeScale)
}

// returns a summary of every session
func (s *Server) getSims(c echo.Context) error {
	views := make([]SessionView, 0)
	for _, sess := range s.Sessions() {
		ctx, cancel := s.commandContext(c)
		v, err := sess.View(ctx, false)
		cancel()
		if err != nil {
			return returnError(c, fmt.Errorf("%s: %w", sess.ID, err))
		}
		views = append(views, v)
	}
	return c.JSONPretty(http.StatusOK, views, indentationChar)
}

func (s *Server) getSim(c echo.Context) error {
	sess, ok := s.Get(c.Param(urlParamId))
	if !ok {
		return returnNotFound(c, c.Param(urlParamId))
	}
	ctx, cancel := s.commandContext(c)
	defer cancel()
	v, err := sess.View(ctx, true)
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, v, indentationChar)
}

func (s *Server) startSim(c echo.Context) error {
	return s.command(c, func(sm *sim.Simulator, _ rig.Rig) error {
		sm.Start()
		return nil
	})
}

func (s *Server) stopSim(c echo.Context) error {
	return s.command(c, func(sm *sim.Simulator, _ rig.Rig) error {
		sm.Stop()
		return nil
	})
}

func (s *Server) resetSim(c echo.Context) error {
	return s.command(c, func(sm *sim.Simulator, _ rig.Rig) error {
		sm.Reset()
		return nil
	})
}

func (s *Server) setParam(c echo.Context) error {
	v, err := bindValue(c)
	if err != nil {
		return returnBadRequest(c, err)
	}
	name := c.Param(urlParamName)
	return s.command(c, func(_ *sim.Simulator, r rig.Rig) error {
		return r.SetParam(name, v)
	})
}

func (s *Server) triggerEvent(c echo.Context) error {
	name := c.Param(urlParamName)
	return s.command(c, func(_ *sim.Simulator, r rig.Rig) error {
		return r.Trigger(name)
	})
}

func (s *Server) setMode(c echo.Context) error {
	mode, err := dynamo.ParseMode(c.Param(urlParamMode))
	if err != nil {
		return returnBadRequest(c, err)
	}
	return s.command(c, func(_ *sim.Simulator, r rig.Rig) error {
		r.SetMode(mode)
		return nil
	})
}

func (s *Server) setManual(c echo.Context) error {
	v, err := bindValue(c)
	if err != nil {
		return returnBadRequest(c, err)
	}
	return s.command(c, func(_ *sim.Simulator, r rig.Rig) error {
		r.SetManual(v)
		return nil
	})
}

func (s *Server) setGains(c echo.Context) error {
	var g dynamo.Gains
	if err := c.Bind(&g); err != nil {
		return returnBadRequest(c, err)
	}
	return s.command(c, func(_ *sim.Simulator, r rig.Rig) error {
		r.SetGains(g)
		return nil
	})
}

func (s *Server) setTimeScale(c echo.Context) error {
	v, err := bindValue(c)
	if err != nil {
		return returnBadRequest(c, err)
	}
	if v < 0 {
		return returnBadRequest(c, fmt.Errorf("%w: time scale %g is negative", dynamo.ErrInvalidConfig, v))
	}
	return s.command(c, func(sm *sim.Simulator, _ rig.Rig) error {
		sm.SetTimeScale(v)
		return nil
	})
}

// command runs fn on the session's frame goroutine and answers with the
// resulting session view.
func (s *Server) command(c echo.Context, fn func(sm *sim.Simulator, r rig.Rig) error) error {
	id := c.Param(urlParamId)
	sess, ok := s.Get(id)
	if !ok {
		return returnNotFound(c, id)
	}

	ctx, cancel := s.commandContext(c)
	defer cancel()

	var cmdErr error
	if err := sess.Do(ctx, func(sm *sim.Simulator, r rig.Rig) { cmdErr = fn(sm, r) }); err != nil {
		return returnError(c, err)
	}
	if cmdErr != nil {
		if isClientError(cmdErr) {
			return returnBadRequest(c, cmdErr)
		}
		return returnError(c, cmdErr)
	}

	v, err := sess.View(ctx, true)
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, v, indentationChar)
}

func (s *Server) commandContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), s.timeout)
}

func bindValue(c echo.Context) (float64, error) {
	var req valueRequest
	if err := c.Bind(&req); err != nil {
		return 0, err
	}
	if req.Value == nil {
		return 0, errors.New(`missing "value"`)
	}
	return *req.Value, nil
}

func isClientError(err error) bool {
	return errors.Is(err, dynamo.ErrUnknownParam) ||
		errors.Is(err, dynamo.ErrUnknownEvent) ||
		errors.Is(err, dynamo.ErrInvalidConfig)
}
