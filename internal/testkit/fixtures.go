package testkit

// Canned stats API responses, one per analysis endpoint. Shapes follow the
// live service.

const survivalFixture = `{
  "curves": [
    {"label": "placebo", "n": 5, "times": [0, 3, 5, 8, 12], "survival": [1, 0.8, 0.6, 0.4, 0.4],
     "lower_ci": [1, 0.41, 0.23, 0.11, 0.11], "upper_ci": [1, 0.97, 0.91, 0.78, 0.78],
     "n_at_risk": [5, 5, 4, 3, 1], "n_events": [0, 1, 1, 1, 0], "median_survival": 8, "n_total_events": 3},
    {"label": "treatment", "n": 5, "times": [0, 6, 10, 14], "survival": [1, 0.8, 0.6, 0.6],
     "lower_ci": [1, 0.41, 0.23, 0.23], "upper_ci": [1, 0.97, 0.91, 0.91],
     "n_at_risk": [5, 5, 3, 2], "n_events": [0, 1, 1, 0], "median_survival": null, "n_total_events": 2}
  ],
  "logrank": {"chi2": 1.21, "p_value": 0.271, "group1": "placebo", "group2": "treatment", "significant": false}
}`

const metaFixture = `{
  "measure": "OR", "model": "random", "n_studies": 3,
  "heterogeneity": {"Q": 2.4, "df": 2, "Q_p": 0.301, "I2": 16.7, "tau2": 0.012, "interpretation": "Low heterogeneity"},
  "fixed_effects": {"estimate": -0.36, "se": 0.14, "z": -2.57, "p": 0.010, "ci": [-0.63, -0.09], "display": 0.70, "ci_display": [0.53, 0.91]},
  "random_effects": {"estimate": -0.37, "se": 0.16, "z": -2.31, "p": 0.021, "ci": [-0.68, -0.06], "display": 0.69, "ci_display": [0.51, 0.94]},
  "pooled": {"estimate": -0.37, "se": 0.16, "z": -2.31, "p": 0.021, "ci": [-0.68, -0.06], "display": 0.69, "ci_display": [0.51, 0.94], "significant": true},
  "forest_studies": [
    {"name": "Adams 2019", "yi": -0.51, "sei": 0.22, "ci_lo": -0.94, "ci_hi": -0.08, "weight": 38.1, "effect_display": 0.60, "ci_lo_display": 0.39, "ci_hi_display": 0.92},
    {"name": "Baker 2020", "yi": -0.11, "sei": 0.25, "ci_lo": -0.60, "ci_hi": 0.38, "weight": 31.0, "effect_display": 0.90, "ci_lo_display": 0.55, "ci_hi_display": 1.46},
    {"name": "Chen 2022", "yi": -0.48, "sei": 0.26, "ci_lo": -0.99, "ci_hi": 0.03, "weight": 30.9, "effect_display": 0.62, "ci_lo_display": 0.37, "ci_hi_display": 1.03}
  ],
  "funnel_data": {"yi": [-0.51, -0.11, -0.48], "sei": [0.22, 0.25, 0.26], "names": ["Adams 2019", "Baker 2020", "Chen 2022"], "pooled_est": -0.37},
  "label": "Odds Ratio", "null_value": 0, "null_display": 1
}`

const ttestFixture = `{
  "test": "Welch's t-test", "paired": false, "n1": 5, "n2": 5,
  "mean1": 5.2, "mean2": 7.1, "sd1": 1.1, "sd2": 1.3, "mean_diff": -1.9, "ci_95": [-3.7, -0.1],
  "t_stat": -2.49, "df": 7.8, "p_value": 0.038, "cohens_d": -1.58, "effect_size_label": "large", "significant": true
}`

const anovaFixture = `{
  "k": 3, "n_total": 15,
  "group_stats": [
    {"name": "low", "n": 5, "mean": 4.1, "sd": 0.9, "se": 0.40, "ci_95": [3.0, 5.2]},
    {"name": "mid", "n": 5, "mean": 5.0, "sd": 1.0, "se": 0.45, "ci_95": [3.8, 6.2]},
    {"name": "high", "n": 5, "mean": 6.8, "sd": 1.2, "se": 0.54, "ci_95": [5.3, 8.3]}
  ],
  "anova_table": {"ss_between": 18.9, "ss_within": 13.2, "df_between": 2, "df_within": 12, "ms_between": 9.45, "ms_within": 1.1, "f_stat": 8.59, "p_value": 0.0048},
  "eta_squared": 0.589, "significant": true,
  "posthoc_tukey": [
    {"group1": "low", "group2": "mid", "mean_diff": 0.9, "p_adjusted": 0.38, "significant": false},
    {"group1": "low", "group2": "high", "mean_diff": 2.7, "p_adjusted": 0.004, "significant": true},
    {"group1": "mid", "group2": "high", "mean_diff": 1.8, "p_adjusted": 0.049, "significant": true}
  ]
}`

const chiSquareFixture = `{
  "observed": [[12, 8], [5, 15]], "expected": [[8.5, 11.5], [8.5, 11.5]],
  "row_names": ["exposed", "unexposed"], "col_names": ["case", "control"],
  "chi2": 3.68, "df": 1, "p_value": 0.055, "cramers_v": 0.30,
  "fisher_exact": {"odds_ratio": 4.5, "p_value": 0.054}, "significant": false
}`

const sampleSizeFixture = `{
  "test": "two_sample_t", "alpha": 0.05, "power": 0.8, "effect_size": 0.5,
  "n1": 64, "n2": 64, "n_total": 128, "ratio": 1
}`

const twoByTwoFixture = `{
  "table": {"a": 20, "b": 80, "c": 10, "d": 90, "n": 200},
  "exposure_name": "Smoking", "outcome_name": "Disease",
  "risks": {"risk_exposed": 0.2, "risk_unexposed": 0.1, "risk_difference": 0.1, "rd_ci_95": [0.0, 0.2]},
  "odds_ratio": {"value": 2.25, "ci_95": [0.99, 5.1]},
  "relative_risk": {"value": 2.0, "ci_95": [0.98, 4.08]},
  "chi_square": {"value": 3.92, "df": 1, "p_value": 0.048},
  "fisher_exact_p": 0.073,
  "nnt": {"value": 10, "type": "NNH"},
  "attributable_risk_exposed": 0.5,
  "significant": true
}`

const incidenceFixture = `{
  "events": 12, "person_time": 4000, "time_unit": "person-years",
  "incidence_rate": 0.003, "ir_per_1000": 3.0, "ci_95": [0.00155, 0.00524], "ci_95_per_1000": [1.55, 5.24],
  "comparison": {"events": 6, "person_time": 4200, "incidence_rate": 0.00143, "ir_per_1000": 1.43,
    "irr": 2.1, "irr_ci_95": [0.79, 5.6], "p_value": 0.13, "significant": false}
}`

const logisticFixture = `{
  "n": 40, "n_events": 18, "log_likelihood": -22.4, "aic": 50.8, "bic": 55.9, "mcfadden_r2": 0.19,
  "coefficients": [
    {"variable": "const", "coef": -3.1, "se": 1.2, "z": -2.58, "p_value": 0.010, "ci_95": [-5.5, -0.7], "odds_ratio": null, "or_ci_95": null, "significant": true},
    {"variable": "age", "coef": 0.05, "se": 0.02, "z": 2.5, "p_value": 0.012, "ci_95": [0.01, 0.09], "odds_ratio": 1.05, "or_ci_95": [1.01, 1.09], "significant": true}
  ]
}`

const rocFixture = `{
  "marker_name": "biomarker", "n": 10, "n_positive": 5, "n_negative": 5, "prevalence": 0.5,
  "auc": 0.84, "auc_se": 0.13, "auc_ci_95": [0.59, 1.0], "auc_z": 2.62, "auc_p": 0.009, "auc_interpretation": "Good",
  "roc_curve": {"fpr": [0, 0, 0.2, 0.2, 0.4, 0.6, 1], "tpr": [0, 0.4, 0.6, 0.8, 0.8, 1, 1]},
  "optimal_threshold": {"value": 2.8, "youden_index": 0.6, "threshold": 2.8, "tp": 4, "fp": 1, "tn": 4, "fn": 1,
    "sensitivity": 0.8, "specificity": 0.8, "ppv": 0.8, "npv": 0.8, "accuracy": 0.8, "positive_lr": 4, "negative_lr": 0.25},
  "selected_threshold": null,
  "sens_spec_table": [
    {"threshold": 2.8, "tp": 4, "fp": 1, "tn": 4, "fn": 1, "sensitivity": 0.8, "specificity": 0.8, "ppv": 0.8, "npv": 0.8, "accuracy": 0.8, "positive_lr": 4, "negative_lr": 0.25}
  ]
}`
