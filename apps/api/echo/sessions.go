package echoapi

import (
	"net/http"
	"net/mail"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
)

const sessionVersionHeader = "X-Session-Version"

type sessionApi struct {
	svc        *economy.Service
	mailSvc    core.EmailService
	appName    string
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := sessionApi{
		svc:        opts.SessionSvc,
		mailSvc:    opts.MailSvc,
		appName:    opts.AppName,
		logger:     opts.Logger,
		validate:   opts.Validate,
		translator: opts.Translator,
		now:        opts.Now,
	}

	admin := roleMiddleware(economy.RoleAdmin)
	teacher := roleMiddleware(economy.RoleTeacher)
	student := roleMiddleware(economy.RoleStudent)

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.create, admin)
	sg.GET("", api.query, admin)

	// any role reads
	dg := sg.Group("/:sid")
	dg.GET("", api.retrieve)
	dg.GET("/subjects", api.querySubjects)
	dg.GET("/activities", api.queryActivities)
	dg.GET("/activities/:id", api.retrieveActivity)
	dg.GET("/rates", api.queryRates)
	dg.GET("/ledger", api.queryLedger)
	dg.GET("/policy", api.retrievePolicy)
	dg.GET("/expiry", api.expiryReport)
	dg.GET("/standings", api.standings)

	// administrator intents
	dg.DELETE("", api.destroy, admin)
	dg.POST("/subjects", api.createSubject, admin)
	dg.DELETE("/subjects/:id", api.destroySubject, admin)
	dg.PUT("/policy/expiry", api.setExpiry, admin)
	dg.PUT("/policy/segregation", api.setSegregation, admin)
	dg.PUT("/policy/teaching-model", api.setTeachingModel, admin)
	dg.PUT("/policy/thresholds/:subject", api.setThreshold, admin)
	dg.POST("/expiry/notify", api.notifyExpiry, admin)

	// teacher intents
	dg.POST("/activities", api.createActivity, teacher)
	dg.POST("/activities/:id/grade", api.grade, teacher)
	dg.PUT("/activities/:id/score", api.score, teacher)
	dg.PUT("/activities/:id/reward", api.setReward, teacher)
	dg.PUT("/rates/:subject", api.setRate, teacher)

	// student intents
	dg.POST("/activities/:id/submit", api.submit, student)
	dg.POST("/purchases", api.purchase, student)
}

// view runs fn on the session named by the :sid path param.
func (api *sessionApi) view(ctx echo.Context, fn func(*economy.Session) error) error {
	return api.svc.View(ctx.Request().Context(), ctx.Param("sid"), func(sess *economy.Session, info economy.SessionInfo) error {
		ctx.Response().Header().Set(sessionVersionHeader, strconv.Itoa(info.Version))
		return fn(sess)
	})
}

// update applies fn to the session named by the :sid path param and saves it.
func (api *sessionApi) update(ctx echo.Context, fn func(*economy.Session) error) error {
	_, info, err := api.svc.Update(ctx.Request().Context(), ctx.Param("sid"), fn)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(sessionVersionHeader, strconv.Itoa(info.Version))
	return nil
}

// Sessions

func (api *sessionApi) create(ctx echo.Context) error {
	var data economy.NewSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	api.logger.Info("session created", getContextActor(ctx), map[string]interface{}{"session": rec.ID, "demo": data.Demo})
	return ctx.JSON(http.StatusCreated, rec.Info())
}

func (api *sessionApi) query(ctx echo.Context) error {
	infos, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, info, err := api.svc.Get(ctx.Request().Context(), ctx.Param("sid"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	ctx.Response().Header().Set(sessionVersionHeader, strconv.Itoa(info.Version))
	return ctx.JSON(http.StatusOK, SessionResponse{
		SessionInfo:  info,
		Wallet:       sess.Wallet(),
		TotalBalance: sess.TotalBalance(),
		Policy:       sess.Policy(),
	})
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("sid")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	api.logger.Info("session deleted", getContextActor(ctx), map[string]interface{}{"session": ctx.Param("sid")})
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *sessionApi) querySubjects(ctx echo.Context) error {
	var subjects []economy.Subject
	err := api.view(ctx, func(sess *economy.Session) error {
		subjects = sess.Subjects()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *sessionApi) createSubject(ctx echo.Context) error {
	var data economy.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var sub economy.Subject
	err := api.update(ctx, func(sess *economy.Session) (err error) {
		sub, err = sess.CreateSubject(data)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *sessionApi) destroySubject(ctx echo.Context) error {
	err := api.update(ctx, func(sess *economy.Session) error {
		return sess.DeleteSubject(ctx.Param("id"))
	})
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Activities

func (api *sessionApi) queryActivities(ctx echo.Context) error {
	var filter economy.ActivityFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ActivityFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	var acts []economy.Activity
	err := api.view(ctx, func(sess *economy.Session) error {
		acts = sess.Activities(filter, ordering.Orderings...)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	return ctx.JSON(http.StatusOK, acts)
}

func (api *sessionApi) retrieveActivity(ctx echo.Context) error {
	var act economy.Activity
	err := api.view(ctx, func(sess *economy.Session) (err error) {
		act, err = sess.Activity(ctx.Param("id"))
		return err
	})
	if err != nil {
		return errors.Wrap(err, "retrieving activity")
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *sessionApi) createActivity(ctx echo.Context) error {
	var data economy.NewActivity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActivity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var act economy.Activity
	err := api.update(ctx, func(sess *economy.Session) (err error) {
		act, err = sess.CreateActivity(data)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return ctx.JSON(http.StatusCreated, act)
}

// transition applies one status change to the :id activity.
func (api *sessionApi) transition(ctx echo.Context, name string, fn func(*economy.Session, string) (economy.Activity, error)) error {
	var act economy.Activity
	err := api.update(ctx, func(sess *economy.Session) (err error) {
		act, err = fn(sess, ctx.Param("id"))
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "%s activity", name)
	}
	return ctx.JSON(http.StatusOK, act)
}

func (api *sessionApi) submit(ctx echo.Context) error {
	return api.transition(ctx, "submitting", (*economy.Session).Submit)
}

func (api *sessionApi) grade(ctx echo.Context) error {
	return api.transition(ctx, "grading", (*economy.Session).Grade)
}

func (api *sessionApi) score(ctx echo.Context) error {
	var data ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.transition(ctx, "scoring", func(sess *economy.Session, id string) (economy.Activity, error) {
		return sess.ScoreActivity(id, *data.Value, data.Weight)
	})
}

func (api *sessionApi) setReward(ctx echo.Context) error {
	var data RewardRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RewardRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	return api.transition(ctx, "rewarding", func(sess *economy.Session, id string) (economy.Activity, error) {
		return sess.SetCoinReward(id, *data.CoinReward)
	})
}

// Exchange

func (api *sessionApi) queryRates(ctx echo.Context) error {
	var rates []economy.Rate
	err := api.view(ctx, func(sess *economy.Session) error {
		rates = sess.Rates()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "querying rates")
	}
	return ctx.JSON(http.StatusOK, rates)
}

func (api *sessionApi) setRate(ctx echo.Context) error {
	var data RateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RateRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	var rate economy.Rate
	err := api.update(ctx, func(sess *economy.Session) (err error) {
		rate, err = sess.SetRate(ctx.Param("subject"), data.Price, *data.PointsAvailable)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "setting rate")
	}
	return ctx.JSON(http.StatusOK, rate)
}

func (api *sessionApi) purchase(ctx echo.Context) error {
	var data PurchaseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PurchaseRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	var receipt economy.Receipt
	err := api.update(ctx, func(sess *economy.Session) (err error) {
		receipt, err = sess.Purchase(data.SubjectID, data.Points)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "purchasing points")
	}
	api.logger.Info("points purchased", getContextActor(ctx), map[string]interface{}{
		"session": ctx.Param("sid"),
		"subject": receipt.SubjectID,
		"points":  receipt.Points,
		"cost":    receipt.Cost,
	})
	return ctx.JSON(http.StatusCreated, receipt)
}

// Ledger

func (api *sessionApi) queryLedger(ctx echo.Context) error {
	subjectID := ctx.QueryParam("subject")
	entries := make([]economy.Entry, 0)
	err := api.view(ctx, func(sess *economy.Session) error {
		for _, e := range sess.Entries() {
			if subjectID == "" || e.SubjectID == subjectID {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "querying ledger")
	}
	return ctx.JSON(http.StatusOK, entries)
}

// Policy

func (api *sessionApi) retrievePolicy(ctx echo.Context) error {
	var ps economy.PolicySettings
	err := api.view(ctx, func(sess *economy.Session) error {
		ps = sess.Policy()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "retrieving policy")
	}
	return ctx.JSON(http.StatusOK, ps)
}

// setPolicy binds and validates data, then applies fn and responds with the new settings.
func (api *sessionApi) setPolicy(ctx echo.Context, data interface{}, fn func(*economy.Session) error) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding policy request")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	var ps economy.PolicySettings
	err := api.update(ctx, func(sess *economy.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		ps = sess.Policy()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "updating policy")
	}
	return ctx.JSON(http.StatusOK, ps)
}

func (api *sessionApi) setExpiry(ctx echo.Context) error {
	var data ExpiryRequest
	return api.setPolicy(ctx, &data, func(sess *economy.Session) error {
		return sess.SetExpiry(*data.ExpiryDays)
	})
}

func (api *sessionApi) setSegregation(ctx echo.Context) error {
	var data SegregationRequest
	return api.setPolicy(ctx, &data, func(sess *economy.Session) error {
		sess.SetSegregation(*data.SegregateBySubject)
		return nil
	})
}

func (api *sessionApi) setTeachingModel(ctx echo.Context) error {
	var data TeachingModelRequest
	return api.setPolicy(ctx, &data, func(sess *economy.Session) error {
		return sess.SetTeachingModel(data.TeachingModel)
	})
}

func (api *sessionApi) setThreshold(ctx echo.Context) error {
	var data ThresholdRequest
	return api.setPolicy(ctx, &data, func(sess *economy.Session) error {
		return sess.SetThreshold(ctx.Param("subject"), *data.Value)
	})
}

// Reports

func (api *sessionApi) expiryReport(ctx echo.Context) error {
	var report economy.ExpiryReport
	err := api.view(ctx, func(sess *economy.Session) error {
		report = sess.ExpiryReport(api.now())
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "reporting expiry")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *sessionApi) standings(ctx echo.Context) error {
	var standings []economy.Standing
	err := api.view(ctx, func(sess *economy.Session) error {
		standings = sess.Standings()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "computing standings")
	}
	return ctx.JSON(http.StatusOK, standings)
}

// notifyExpiry emails the expiry report when coins expire within the requested window.
func (api *sessionApi) notifyExpiry(ctx echo.Context) error {
	var data NotifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var report economy.ExpiryReport
	err := api.view(ctx, func(sess *economy.Session) error {
		report = sess.ExpiryReport(api.now())
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "reporting expiry")
	}
	if !report.ExpiringSoon(time.Duration(data.WithinDays) * 24 * time.Hour) {
		return ctx.JSON(http.StatusOK, echo.Map{"sent": 0})
	}

	to := make([]mail.Address, 0, len(data.To))
	for _, addr := range data.To {
		to = append(to, mail.Address{Address: addr})
	}
	messages := economy.NewExpiryNotice(report, api.appName, to...)
	api.mailSvc.SendMessages(messages...)

	api.logger.Info("expiry notice sent", getContextActor(ctx), map[string]interface{}{"session": ctx.Param("sid"), "to": data.To})
	return ctx.JSON(http.StatusAccepted, echo.Map{"sent": len(messages)})
}
