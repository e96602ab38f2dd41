// Package db pkg/db/db.go provides SQLite-backed storage for pumpwatch.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mwelling79/pumpwatch/pkg/models"
)

const (
	defaultFailureLimit = 200

	createTablesSQL = `
	-- Pump controller samples
	CREATE TABLE IF NOT EXISTS pump_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_pump_id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		status_id INTEGER NOT NULL DEFAULT 0,
		frequency REAL,
		target_frequency REAL,
		output_current REAL,
		output_voltage REAL,
		pressure REAL,
		igbt_temperature REAL,
		fault INTEGER NOT NULL DEFAULT 0,
		under_alarm INTEGER NOT NULL DEFAULT 0,
		running INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		start_date TIMESTAMP,
		pump_log_date TIMESTAMP NOT NULL
	);

	-- Discrete sensor samples
	CREATE TABLE IF NOT EXISTS sensor_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL DEFAULT 0,
		value REAL NOT NULL,
		value_units TEXT NOT NULL DEFAULT '',
		log_date_time TIMESTAMP NOT NULL
	);

	-- Flow meter samples
	CREATE TABLE IF NOT EXISTS flow_meter_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		flow_meter_id INTEGER NOT NULL,
		site_pipeline_id INTEGER NOT NULL DEFAULT 0,
		total_volume REAL NOT NULL DEFAULT 0,
		day_volume REAL NOT NULL DEFAULT 0,
		flow_rate REAL NOT NULL,
		log_start_time TIMESTAMP NOT NULL,
		log_end_time TIMESTAMP
	);

	-- Failure / maintenance records
	CREATE TABLE IF NOT EXISTS failure_logs (
		failure_log_id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_pump_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL DEFAULT 0,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP,
		is_pump_failure INTEGER NOT NULL DEFAULT 0,
		failure_details TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pump_logs_pump_time
		ON pump_logs(site_pump_id, pump_log_date);
	CREATE INDEX IF NOT EXISTS idx_sensor_logs_sensor_time
		ON sensor_logs(sensor_id, log_date_time);
	CREATE INDEX IF NOT EXISTS idx_flow_meter_logs_meter_time
		ON flow_meter_logs(flow_meter_id, log_start_time);
	CREATE INDEX IF NOT EXISTS idx_failure_logs_created
		ON failure_logs(created_at);

	PRAGMA journal_mode=WAL;
	`
)

// DB wraps the database connection and implements Service.
type DB struct {
	*sql.DB
}

// New opens (creating if necessary) the SQLite database at dbPath and
// initializes the schema.
func New(dbPath string) (Service, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	db := &DB{sqlDB}
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInit, err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(createTablesSQL)

	return err
}

func (db *DB) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// inClause renders "(?,?,...)" with its argument slice for an IN filter.
func inClause(ids []int64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))

	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}

	return "(" + strings.Join(marks, ",") + ")", args
}

// windowClause renders the time bound predicates for column col.
func (w TimeWindow) clause(col string) (string, []interface{}) {
	sql := col + " >= ?"
	args := []interface{}{w.Start}

	if !w.End.IsZero() {
		sql += " AND " + col + " < ?"
		args = append(args, w.End)
	}

	return sql, args
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}

func (db *DB) GetPumpTelemetry(
	ctx context.Context, window TimeWindow, pumpIDs []int64, limit int) ([]models.PumpReading, error) {
	if len(pumpIDs) == 0 {
		return nil, nil
	}

	in, inArgs := inClause(pumpIDs)
	win, winArgs := window.clause("pump_log_date")

	query := fmt.Sprintf(`
        SELECT site_pump_id, name, pump_log_date,
               frequency, output_current, output_voltage, pressure, igbt_temperature
        FROM pump_logs
        WHERE %s AND site_pump_id IN %s
        ORDER BY pump_log_date ASC`, win, in)

	args := append(winArgs, inArgs...)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w pump telemetry: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var readings []models.PumpReading

	for rows.Next() {
		var (
			r                               models.PumpReading
			freq, current, volt, pres, igbt sql.NullFloat64
		)

		if err := rows.Scan(&r.PumpID, &r.Name, &r.Timestamp, &freq, &current, &volt, &pres, &igbt); err != nil {
			return nil, fmt.Errorf("%w pump reading: %w", ErrFailedToScan, err)
		}

		r.Frequency = nullToNaN(freq)
		r.OutputCurrent = nullToNaN(current)
		r.OutputVoltage = nullToNaN(volt)
		r.Pressure = nullToNaN(pres)
		r.IGBTTemperature = nullToNaN(igbt)

		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func (db *DB) GetSensorLogs(
	ctx context.Context, window TimeWindow, sensorIDs []int64) ([]models.SensorReading, error) {
	if len(sensorIDs) == 0 {
		return nil, nil
	}

	in, inArgs := inClause(sensorIDs)
	win, winArgs := window.clause("log_date_time")

	query := fmt.Sprintf(`
        SELECT sensor_id, site_id, value, value_units, log_date_time
        FROM sensor_logs
        WHERE %s AND sensor_id IN %s
        ORDER BY log_date_time ASC`, win, in)

	rows, err := db.QueryContext(ctx, query, append(winArgs, inArgs...)...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w sensor logs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var readings []models.SensorReading

	for rows.Next() {
		var r models.SensorReading

		if err := rows.Scan(&r.SensorID, &r.SiteID, &r.Value, &r.Unit, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("%w sensor reading: %w", ErrFailedToScan, err)
		}

		readings = append(readings, r)
	}

	return readings, rows.Err()
}

func (db *DB) GetFlowLogs(
	ctx context.Context, window TimeWindow, flowMeterIDs []int64) ([]models.FlowReading, error) {
	if len(flowMeterIDs) == 0 {
		return nil, nil
	}

	in, inArgs := inClause(flowMeterIDs)
	win, winArgs := window.clause("log_start_time")

	query := fmt.Sprintf(`
        SELECT flow_meter_id, flow_rate, log_start_time
        FROM flow_meter_logs
        WHERE %s AND flow_meter_id IN %s
        ORDER BY log_start_time ASC`, win, in)

	rows, err := db.QueryContext(ctx, query, append(winArgs, inArgs...)...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w flow logs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var readings []models.FlowReading

	for rows.Next() {
		var r models.FlowReading

		if err := rows.Scan(&r.FlowMeterID, &r.FlowRate, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("%w flow reading: %w", ErrFailedToScan, err)
		}

		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// GetLatestPumpStatus returns the newest log row per pump for the card
// view, optionally filtered by a name/id search term.
func (db *DB) GetLatestPumpStatus(
	ctx context.Context, pumpIDs []int64, search string) ([]models.PumpStatus, error) {
	if len(pumpIDs) == 0 {
		return nil, nil
	}

	in, inArgs := inClause(pumpIDs)

	query := fmt.Sprintf(`
        WITH latest AS (
            SELECT site_pump_id, name, status, status_id, fault, under_alarm, running, pump_log_date,
                   ROW_NUMBER() OVER (PARTITION BY site_pump_id ORDER BY pump_log_date DESC) AS rn
            FROM pump_logs
            WHERE site_pump_id IN %s
        )
        SELECT site_pump_id, name, status, status_id, fault, under_alarm, running, pump_log_date
        FROM latest
        WHERE rn = 1`, in)

	args := inArgs

	if search != "" {
		query += ` AND (name LIKE ? OR CAST(site_pump_id AS TEXT) LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	rows, err := db.QueryContext(ctx, query, args...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w pump status: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var statuses []models.PumpStatus

	for rows.Next() {
		var (
			s                          models.PumpStatus
			fault, underAlarm, running int
		)

		if err := rows.Scan(&s.PumpID, &s.Name, &s.StatusText, &s.StatusID,
			&fault, &underAlarm, &running, &s.LastLogTime); err != nil {
			return nil, fmt.Errorf("%w pump status row: %w", ErrFailedToScan, err)
		}

		s.AlertStatus = alertStatus(fault, underAlarm)
		s.Running = running != 0

		statuses = append(statuses, s)
	}

	return statuses, rows.Err()
}

func alertStatus(fault, underAlarm int) string {
	if fault == 1 || underAlarm == 1 {
		return "ALERT"
	}

	return "NORMAL"
}

func (db *DB) GetPumpDetail(ctx context.Context, pumpID int64) (*models.PumpDetail, error) {
	const query = `
        SELECT site_pump_id, name, status, status_id,
               frequency, target_frequency, output_current, output_voltage, pressure,
               fault, under_alarm, running, active, start_date, pump_log_date
        FROM pump_logs
        WHERE site_pump_id = ?
        ORDER BY pump_log_date DESC
        LIMIT 1`

	var (
		d                                  models.PumpDetail
		freq, tfreq, current, volt, pres   sql.NullFloat64
		fault, underAlarm, running, active int
		startDate                          sql.NullTime
	)

	err := db.QueryRowContext(ctx, query, pumpID).Scan(
		&d.PumpID, &d.Name, &d.StatusText, &d.StatusID,
		&freq, &tfreq, &current, &volt, &pres,
		&fault, &underAlarm, &running, &active, &startDate, &d.LastLogTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPumpNotFound
		}

		return nil, fmt.Errorf("%w pump detail: %w", ErrFailedToQuery, err)
	}

	d.AlertStatus = alertStatus(fault, underAlarm)
	d.Running = running != 0
	d.Active = active != 0
	d.Frequency = nullFloat(freq)
	d.TargetFrequency = nullFloat(tfreq)
	d.OutputCurrent = nullFloat(current)
	d.OutputVoltage = nullFloat(volt)
	d.Pressure = nullFloat(pres)

	if startDate.Valid {
		d.StartDate = &startDate.Time
	}

	return &d, nil
}

func (db *DB) GetPumpHistory(
	ctx context.Context, pumpID int64, limit int) ([]models.PumpHistoryPoint, error) {
	const query = `
        SELECT pump_log_date, frequency, output_current, output_voltage, pressure,
               fault, under_alarm, running
        FROM pump_logs
        WHERE site_pump_id = ?
        ORDER BY pump_log_date DESC
        LIMIT ?`

	rows, err := db.QueryContext(ctx, query, pumpID, limit) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w pump history: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var history []models.PumpHistoryPoint

	for rows.Next() {
		var (
			p                         models.PumpHistoryPoint
			freq, current, volt, pres sql.NullFloat64
			running                   int
		)

		if err := rows.Scan(&p.Timestamp, &freq, &current, &volt, &pres,
			&p.Fault, &p.UnderAlarm, &running); err != nil {
			return nil, fmt.Errorf("%w history point: %w", ErrFailedToScan, err)
		}

		p.Frequency = nullFloat(freq)
		p.OutputCurrent = nullFloat(current)
		p.OutputVoltage = nullFloat(volt)
		p.Pressure = nullFloat(pres)
		p.Running = running != 0

		history = append(history, p)
	}

	return history, rows.Err()
}

func (db *DB) GetFailureLogs(ctx context.Context, filter FailureFilter) ([]models.FailureLog, error) {
	query := `
        SELECT failure_log_id, site_pump_id, site_id, start_date, end_date,
               is_pump_failure, failure_details, notes, created_at, updated_at
        FROM failure_logs`

	var (
		conditions []string
		args       []interface{}
	)

	if filter.PumpID != 0 {
		conditions = append(conditions, "site_pump_id = ?")
		args = append(args, filter.PumpID)
	}

	if filter.SiteID != 0 {
		conditions = append(conditions, "site_id = ?")
		args = append(args, filter.SiteID)
	}

	if filter.IsPumpFailure != nil {
		conditions = append(conditions, "is_pump_failure = ?")
		args = append(args, *filter.IsPumpFailure)
	}

	if filter.Search != "" {
		conditions = append(conditions, `(failure_details LIKE ? OR notes LIKE ?
            OR CAST(site_pump_id AS TEXT) LIKE ? OR CAST(site_id AS TEXT) LIKE ?)`)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFailureLimit
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w failure logs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var logs []models.FailureLog

	for rows.Next() {
		var (
			l             models.FailureLog
			endDate       sql.NullTime
			isPumpFailure int
		)

		if err := rows.Scan(&l.FailureLogID, &l.PumpID, &l.SiteID, &l.StartDate, &endDate,
			&isPumpFailure, &l.FailureDetails, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w failure log: %w", ErrFailedToScan, err)
		}

		if endDate.Valid {
			l.EndDate = &endDate.Time
		}

		l.IsPumpFailure = isPumpFailure != 0

		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (db *DB) GetFlowMeterLogs(
	ctx context.Context, window TimeWindow, flowMeterIDs []int64) ([]models.FlowMeterLog, error) {
	if len(flowMeterIDs) == 0 {
		return nil, nil
	}

	in, inArgs := inClause(flowMeterIDs)
	win, winArgs := window.clause("log_start_time")

	query := fmt.Sprintf(`
        SELECT flow_meter_id, site_pipeline_id, total_volume, day_volume, flow_rate,
               log_start_time, log_end_time
        FROM flow_meter_logs
        WHERE %s AND flow_meter_id IN %s
        ORDER BY log_start_time DESC`, win, in)

	rows, err := db.QueryContext(ctx, query, append(winArgs, inArgs...)...) //nolint:rowserrcheck // rows.Close() is deferred
	if err != nil {
		return nil, fmt.Errorf("%w flow meter logs: %w", ErrFailedToQuery, err)
	}
	defer closeRows(rows)

	var logs []models.FlowMeterLog

	for rows.Next() {
		var (
			l       models.FlowMeterLog
			endTime sql.NullTime
		)

		if err := rows.Scan(&l.FlowMeterID, &l.SitePipelineID, &l.TotalVolume, &l.DayVolume,
			&l.FlowRate, &l.LogStartTime, &endTime); err != nil {
			return nil, fmt.Errorf("%w flow meter log: %w", ErrFailedToScan, err)
		}

		if endTime.Valid {
			l.LogEndTime = endTime.Time
		}

		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}

	f := v.Float64

	return &f
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}

// Insert helpers used by ingestion tooling and test fixtures.

func (db *DB) InsertPumpReading(ctx context.Context, r *models.PumpReading, fault, underAlarm, running int) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO pump_logs
            (site_pump_id, name, frequency, output_current, output_voltage,
             pressure, igbt_temperature, fault, under_alarm, running, pump_log_date)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PumpID, r.Name, naNToNull(r.Frequency), naNToNull(r.OutputCurrent),
		naNToNull(r.OutputVoltage), naNToNull(r.Pressure), naNToNull(r.IGBTTemperature),
		fault, underAlarm, running, r.Timestamp)
	if err != nil {
		return fmt.Errorf("%w pump log: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (db *DB) InsertSensorReading(ctx context.Context, r *models.SensorReading) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO sensor_logs (sensor_id, site_id, value, value_units, log_date_time)
        VALUES (?, ?, ?, ?, ?)`,
		r.SensorID, r.SiteID, r.Value, r.Unit, r.Timestamp)
	if err != nil {
		return fmt.Errorf("%w sensor log: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (db *DB) InsertFlowReading(ctx context.Context, r *models.FlowReading) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO flow_meter_logs (flow_meter_id, flow_rate, log_start_time)
        VALUES (?, ?, ?)`,
		r.FlowMeterID, r.FlowRate, r.Timestamp)
	if err != nil {
		return fmt.Errorf("%w flow log: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (db *DB) InsertFailureLog(ctx context.Context, l *models.FailureLog) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO failure_logs
            (site_pump_id, site_id, start_date, end_date, is_pump_failure,
             failure_details, notes, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.PumpID, l.SiteID, l.StartDate, l.EndDate, l.IsPumpFailure,
		l.FailureDetails, l.Notes, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w failure log: %w", ErrFailedToInsert, err)
	}

	return nil
}

func naNToNull(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}

	return v
}
