package iocache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// Table names for result tracking.
const (
	runsTable       = "brentcp_runs"
	fitsTable       = "brentcp_fits"
	parametersTable = "brentcp_parameters"
)

// resultTables lists the result tables in creation order.
var resultTables = []string{runsTable, fitsTable, parametersTable}

// ResultStoreImpl implements the ResultStore interface.
type ResultStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.ResultStore = &ResultStoreImpl{} // Compile-time check

// NewResultStore creates a new ResultStore with the specified backend.
// The none backend yields a store that records nothing and holds no runs.
func NewResultStore(backend schema.DatabaseBackend, connStr string) (contract.ResultStore, error) {
	if backend == schema.NoneBackend {
		return &ResultStoreImpl{backend: backend}, nil
	}
	db, err := openDB(backend, connStr, GetResultsDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := createResultTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create result tables: %w", err)
	}
	return &ResultStoreImpl{db: db, backend: backend}, nil
}

// createResultTables creates the result tracking tables.
func createResultTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range resultTables {
		if _, err := db.Exec(getCreateResultTableQuery(table, backend)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// columnTypes maps logical column types to each backend's DDL.
type columnTypes struct {
	id, ref, text, key, blob, float, integer, boolean, timestamp string
}

func typesFor(backend schema.DatabaseBackend) columnTypes {
	switch backend {
	case schema.MySQLBackend:
		return columnTypes{
			id: "BIGINT AUTO_INCREMENT PRIMARY KEY", ref: "BIGINT", text: "TEXT", key: "VARCHAR(191)",
			blob: "LONGBLOB", float: "DOUBLE", integer: "INT", boolean: "BOOLEAN", timestamp: "DATETIME(6)",
		}
	case schema.PostgreSQLBackend:
		return columnTypes{
			id: "BIGSERIAL PRIMARY KEY", ref: "BIGINT", text: "TEXT", key: "TEXT",
			blob: "BYTEA", float: "DOUBLE PRECISION", integer: "INT", boolean: "BOOLEAN", timestamp: "TIMESTAMPTZ",
		}
	default: // SQLite
		return columnTypes{
			id: "INTEGER PRIMARY KEY AUTOINCREMENT", ref: "INTEGER", text: "TEXT", key: "TEXT",
			blob: "BLOB", float: "REAL", integer: "INTEGER", boolean: "INTEGER", timestamp: "TEXT",
		}
	}
}

// getCreateResultTableQuery returns the CREATE TABLE query of one result table.
func getCreateResultTableQuery(table string, backend schema.DatabaseBackend) string {
	t := typesFor(backend)
	quoted := quoteTableName(table, backend)
	switch table {
	case runsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id %s,
				start_time %s NOT NULL,
				end_time %s,
				run_duration_ms %s,
				observations %s NOT NULL,
				config_params %s,
				dataset_payload %s NOT NULL,
				preferred_model %s,
				waic_difference %s
			);
		`, quoted, t.id, t.timestamp, t.timestamp, t.integer, t.integer, t.text, t.blob, t.key, t.float)
	case fitsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id %s NOT NULL,
				model_key %s NOT NULL,
				n_changepoints %s NOT NULL,
				draws %s NOT NULL,
				tune %s NOT NULL,
				chains %s NOT NULL,
				waic %s NOT NULL,
				waic_se %s NOT NULL,
				p_waic %s NOT NULL,
				r_hat_max %s,
				ess_min %s,
				converged %s NOT NULL,
				fitted_at %s NOT NULL,
				payload %s NOT NULL,
				PRIMARY KEY (run_id, model_key)
			);
		`, quoted, t.ref, t.key, t.integer, t.integer, t.integer, t.integer,
			t.float, t.float, t.float, t.float, t.float, t.boolean, t.timestamp, t.blob)
	default: // parametersTable
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id %s NOT NULL,
				model_key %s NOT NULL,
				parameter %s NOT NULL,
				mean %s NOT NULL,
				sd %s NOT NULL,
				hdi_low %s NOT NULL,
				hdi_high %s NOT NULL,
				r_hat %s,
				ess %s,
				PRIMARY KEY (run_id, model_key, parameter)
			);
		`, quoted, t.ref, t.key, t.key, t.float, t.float, t.float, t.float, t.float, t.float)
	}
}

// exec runs a ?-placeholder statement on the backend.
func (rs *ResultStoreImpl) exec(query string, args ...any) (sql.Result, error) {
	return rs.db.Exec(rebind(query, rs.backend), args...)
}

func (rs *ResultStoreImpl) queryRow(query string, args ...any) *sql.Row {
	return rs.db.QueryRow(rebind(query, rs.backend), args...)
}

func (rs *ResultStoreImpl) table(name string) string {
	return quoteTableName(name, rs.backend)
}

// BeginRun creates a new run and stores the prepared dataset with it.
func (rs *ResultStoreImpl) BeginRun(startTime time.Time, configParams map[string]any, dataset *schema.Dataset) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}
	payload, err := contract.EncodePayload(dataset)
	if err != nil {
		return 0, fmt.Errorf("failed to encode dataset: %w", err)
	}

	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, observations, config_params, dataset_payload) VALUES (?, ?, ?, ?) RETURNING run_id`,
			rs.table(runsTable))
		err = rs.queryRow(query, startTime, dataset.Len(), string(configJSON), payload).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, observations, config_params, dataset_payload) VALUES (?, ?, ?, ?)`,
			rs.table(runsTable))
		var result sql.Result
		result, err = rs.exec(query, formatTime(startTime, rs.backend), dataset.Len(), string(configJSON), payload)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// RecordFit stores a fit with its summary rows in one transaction.
func (rs *ResultStoreImpl) RecordFit(runID int64, fit *schema.FitResult, convergence schema.ConvergenceReport, summary []schema.ParameterSummary) error {
	if rs.db == nil {
		return nil
	}
	if fit == nil {
		return fmt.Errorf("cannot record a nil fit for run %d", runID)
	}
	payload, err := contract.EncodePayload(fit)
	if err != nil {
		return fmt.Errorf("failed to encode fit: %w", err)
	}
	key := string(fit.Kind.Key())

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fitQuery := rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, model_key, n_changepoints, draws, tune, chains, waic, waic_se, p_waic,
		                r_hat_max, ess_min, converged, fitted_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rs.table(fitsTable)), rs.backend)
	if _, err := tx.Exec(fitQuery,
		runID, key, fit.NChangepoints, fit.Options.Draws, fit.Options.Tune, fit.Options.Chains,
		fit.WAIC.WAIC, fit.WAIC.SE, fit.WAIC.PWAIC,
		convergence.RHatMax, convergence.ESSMin, convergence.Converged,
		formatTime(fit.FittedAt, rs.backend), payload,
	); err != nil {
		return fmt.Errorf("failed to insert fit %s: %w", key, err)
	}

	paramQuery := rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, model_key, parameter, mean, sd, hdi_low, hdi_high, r_hat, ess)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rs.table(parametersTable)), rs.backend)
	stmt, err := tx.Prepare(paramQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare parameter insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, p := range summary {
		if _, err := stmt.Exec(runID, key, p.Name, p.Mean, p.SD, p.HDILow, p.HDIHigh, p.RHat, p.ESS); err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fit %s: %w", key, err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (rs *ResultStoreImpl) EndRun(runID int64, endTime time.Time, comparison *schema.Comparison) error {
	if rs.db == nil {
		return nil
	}

	var startTime time.Time
	row := rs.queryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, rs.table(runsTable)), runID)
	if err := row.Scan(scanTime(&startTime)); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	var preferred *string
	var difference *float64
	if comparison != nil {
		p := string(comparison.Preferred)
		preferred = &p
		difference = &comparison.Difference
	}

	query := fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, preferred_model = ?, waic_difference = ? WHERE run_id = ?`,
		rs.table(runsTable))
	if _, err := rs.exec(query, formatTime(endTime, rs.backend), durationMs, preferred, difference, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// LoadResults rebuilds the dataset and every fit of a run.
func (rs *ResultStoreImpl) LoadResults(runID int64) (*schema.Results, error) {
	if rs.db == nil {
		return nil, contract.ErrNoResults
	}

	if runID <= 0 {
		var latest sql.NullInt64
		if err := rs.queryRow(fmt.Sprintf(`SELECT MAX(run_id) FROM %s`, rs.table(runsTable))).Scan(&latest); err != nil {
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
		if !latest.Valid {
			return nil, contract.ErrNoResults
		}
		runID = latest.Int64
	}

	results := &schema.Results{RunID: runID, Models: make(map[schema.ModelKey]*schema.FitResult)}
	var datasetPayload []byte
	row := rs.queryRow(fmt.Sprintf(`SELECT start_time, dataset_payload FROM %s WHERE run_id = ?`, rs.table(runsTable)), runID)
	if err := row.Scan(scanTime(&results.CreatedAt), &datasetPayload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %d not found", contract.ErrNoResults, runID)
		}
		return nil, fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	results.Dataset = &schema.Dataset{}
	if err := contract.DecodePayload(datasetPayload, results.Dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset of run %d: %w", runID, err)
	}

	rows, err := rs.db.Query(rebind(fmt.Sprintf(`SELECT model_key, payload FROM %s WHERE run_id = ? ORDER BY model_key`,
		rs.table(fitsTable)), rs.backend), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fits of run %d: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan fit: %w", err)
		}
		fit := &schema.FitResult{}
		if err := contract.DecodePayload(payload, fit); err != nil {
			return nil, fmt.Errorf("failed to decode fit %s of run %d: %w", key, runID, err)
		}
		results.Models[schema.ModelKey(key)] = fit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fits: %w", err)
	}
	if len(results.Models) == 0 {
		return nil, fmt.Errorf("%w: run %d has no fits", contract.ErrNoResults, runID)
	}
	return results, nil
}

// Close closes the underlying connection.
func (rs *ResultStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the result store.
func (rs *ResultStoreImpl) GetStatus() (schema.ResultStatus, error) {
	status := schema.ResultStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	for _, table := range resultTables {
		var count int64
		if err := rs.queryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", rs.table(table))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[runsTable])
	status.TotalFits = int(status.TableSizes[fitsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	row := rs.queryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", rs.table(runsTable)))
	if err := row.Scan(&status.LastRunID, scanTime(&status.LastRunTime)); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	row = rs.queryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", rs.table(runsTable)))
	if err := row.Scan(scanTime(&status.OldestRunTime)); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (rs *ResultStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	rows, err := rs.db.Query(fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, observations,
		config_params, preferred_model, waic_difference FROM %s ORDER BY run_id`, rs.table(runsTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var endTime time.Time
		end := scanTime(&endTime)
		if err := rows.Scan(&record.RunID, scanTime(&record.StartTime), end, &record.RunDurationMs,
			&record.Observations, &record.ConfigParams, &record.PreferredModel, &record.WAICDifference); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if end.valid {
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllFits retrieves all fit records, without payloads, from the store.
func (rs *ResultStoreImpl) GetAllFits() ([]schema.FitRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	rows, err := rs.db.Query(fmt.Sprintf(`SELECT run_id, model_key, n_changepoints, draws, tune, chains,
		waic, waic_se, p_waic, r_hat_max, ess_min, converged, fitted_at FROM %s ORDER BY run_id, model_key`, rs.table(fitsTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to query fits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FitRecord
	for rows.Next() {
		var r schema.FitRecord
		if err := rows.Scan(&r.RunID, &r.ModelKey, &r.NChangepoints, &r.Draws, &r.Tune, &r.Chains,
			&r.WAIC, &r.WAICSE, &r.PWAIC, &r.RHatMax, &r.ESSMin, &r.Converged, scanTime(&r.FittedAt)); err != nil {
			return nil, fmt.Errorf("failed to scan fit: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fits: %w", err)
	}
	return results, nil
}

// GetAllParameters retrieves all parameter summary rows from the store.
func (rs *ResultStoreImpl) GetAllParameters() ([]schema.ParameterRecord, error) {
	if rs.db == nil {
		return nil, nil
	}
	rows, err := rs.db.Query(fmt.Sprintf(`SELECT run_id, model_key, parameter, mean, sd, hdi_low, hdi_high, r_hat, ess
		FROM %s ORDER BY run_id, model_key, parameter`, rs.table(parametersTable)))
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ParameterRecord
	for rows.Next() {
		var r schema.ParameterRecord
		if err := rows.Scan(&r.RunID, &r.ModelKey, &r.Parameter, &r.Mean, &r.SD, &r.HDILow, &r.HDIHigh, &r.RHat, &r.ESS); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}
	return results, nil
}
