package schema

// ParameterSummary summarizes one dimension of a posterior variable.
// RHat and ESS are nil when undefined, e.g. for a constant trajectory.
type ParameterSummary struct {
	Name    string   `json:"name"`
	Mean    float64  `json:"mean"`
	SD      float64  `json:"sd"`
	HDILow  float64  `json:"hdi_low"`
	HDIHigh float64  `json:"hdi_high"`
	RHat    *float64 `json:"r_hat"`
	ESS     *float64 `json:"ess_bulk"`
}

// ChangePoint is one detected structural break.
type ChangePoint struct {
	ID          int    `json:"id"`
	Date        string `json:"date"`
	TimeIndex   int    `json:"time_index"`
	HDILowDate  string `json:"hdi_lower_date"`
	HDIHighDate string `json:"hdi_upper_date"`
	HDILow      int    `json:"hdi_lower_index"`
	HDIHigh     int    `json:"hdi_upper_index"`
}

// EventCoefficient is the shared effect of one standardized covariate.
type EventCoefficient struct {
	Feature     string  `json:"feature"`
	Mean        float64 `json:"mean"`
	HDILow      float64 `json:"hdi_lower"`
	HDIHigh     float64 `json:"hdi_upper"`
	Significant bool    `json:"significant"`
}

// Segment is one regime between consecutive change points, reported from both
// the model's and the raw data's point of view. RawMean and RawStd are nil for
// an empty segment.
type Segment struct {
	ID           int      `json:"id"`
	StartIndex   int      `json:"start_index"`
	EndIndex     int      `json:"end_index"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	DurationDays int      `json:"duration_days"`
	Observations int      `json:"n_obs"`
	ModelMean    float64  `json:"mean_log_return"`
	ModelSigma   float64  `json:"volatility"`
	RawMean      *float64 `json:"raw_mean"`
	RawStd       *float64 `json:"raw_std"`
}

// ConvergenceReport is the worst case over every parameter of a fit.
type ConvergenceReport struct {
	RHatMax       *float64 `json:"r_hat_max"`
	RHatMaxParam  string   `json:"r_hat_max_param"`
	ESSMin        *float64 `json:"ess_min"`
	ESSMinParam   string   `json:"ess_min_param"`
	Threshold     float64  `json:"threshold"`
	MinESS        float64  `json:"min_ess_threshold"`
	Converged     bool     `json:"is_converged"`
	ESSSufficient bool     `json:"ess_sufficient"`
}

// PPCReport compares replicated data against the observed series.
type PPCReport struct {
	Replicates     int     `json:"replicates"`
	ObservedMean   float64 `json:"observed_mean"`
	ObservedStd    float64 `json:"observed_std"`
	ReplicatedMean float64 `json:"replicated_mean"`
	ReplicatedStd  float64 `json:"replicated_std"`
	PValueMean     float64 `json:"p_value_mean"`
	PValueStd      float64 `json:"p_value_std"`
	ResidualMean   float64 `json:"residual_mean"`
	ResidualStd    float64 `json:"residual_std"`
	RMSE           float64 `json:"rmse"`
}

// Comparison is the WAIC verdict between the basic and event fits.
type Comparison struct {
	BasicWAIC    float64  `json:"basic_waic"`
	BasicWAICSE  float64  `json:"basic_waic_se"`
	EventWAIC    float64  `json:"event_waic"`
	EventWAICSE  float64  `json:"event_waic_se"`
	Difference   float64  `json:"difference"`
	DifferenceSE float64  `json:"difference_se"`
	Preferred    ModelKey `json:"preferred_model"`
	Warning      bool     `json:"warning"`
}

// ModelStatus reports which fits exist and how the event fit converged.
type ModelStatus struct {
	ModelsFitted bool               `json:"models_fitted"`
	BasicFitted  bool               `json:"basic_model_fitted"`
	EventFitted  bool               `json:"event_model_fitted"`
	Observations int                `json:"observations"`
	Comparison   *Comparison        `json:"waic_comparison,omitempty"`
	Convergence  *ConvergenceReport `json:"convergence,omitempty"`
}

// DiagnosticsReport is the full diagnostic view of one fit.
type DiagnosticsReport struct {
	Model       ModelKey           `json:"model"`
	WAIC        WAIC               `json:"waic"`
	Convergence ConvergenceReport  `json:"convergence"`
	PPC         *PPCReport         `json:"posterior_predictive,omitempty"`
	Summary     []ParameterSummary `json:"summary_statistics"`
	Comparison  *Comparison        `json:"model_comparison,omitempty"`
}
