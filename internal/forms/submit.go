package forms

import (
	"context"
	"fmt"

	"medstat/domain/analysis"
	"medstat/domain/dataset"
	"medstat/internal/errors"
	"medstat/ports"
)

// Submit validates form against ds and, only when that succeeds, calls the
// matching stats API endpoint.
func Submit(ctx context.Context, api ports.StatsAPI, form Form, ds *dataset.Dataset) (analysis.Result, error) {
	body, err := form.Build(ds)
	if err != nil {
		return nil, err
	}

	switch req := body.(type) {
	case analysis.SurvivalRequest:
		return settle(api.Survival(ctx, req))
	case analysis.MetaRequest:
		return settle(api.Meta(ctx, req))
	case analysis.TTestRequest:
		res, err := api.TTest(ctx, req)
		if err != nil {
			return nil, err
		}
		res.Groups = [][]float64{req.Group1, req.Group2}
		if tf, ok := form.(*TTestForm); ok {
			_, res.GroupNames, _ = tf.Samples(ds)
		}
		return res, nil
	case analysis.AnovaRequest:
		res, err := api.Anova(ctx, req)
		if err != nil {
			return nil, err
		}
		res.Groups = req.Groups
		return res, nil
	case analysis.ChiSquareRequest:
		return settle(api.ChiSquare(ctx, req))
	case analysis.SampleSizeRequest:
		return settle(api.SampleSize(ctx, req))
	case analysis.TwoByTwoRequest:
		return settle(api.TwoByTwo(ctx, req))
	case analysis.IncidenceRequest:
		return settle(api.IncidenceRate(ctx, req))
	case analysis.LogisticRequest:
		return settle(api.Logistic(ctx, req))
	case analysis.ROCRequest:
		return settle(api.ROC(ctx, req))
	}
	return nil, errors.InternalError(fmt.Sprintf("no endpoint for %T", body))
}

// settle keeps a nil typed pointer from turning into a non-nil Result
func settle[T analysis.Result](res T, err error) (analysis.Result, error) {
	if err != nil {
		return nil, err
	}
	return res, nil
}
