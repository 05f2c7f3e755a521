package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgreSQLStore 基于 PostgreSQL 的会话/阶段存储实现。
// stage_data 在配置了 cipher 时以 AES-GCM 加密落盘。
type PostgreSQLStore struct {
	db     *sql.DB
	cipher *StageDataCipher
}

// NewPostgreSQLStore 创建 PostgreSQL 存储实例。cipher 可为 nil（明文存储）。
func NewPostgreSQLStore(db *sql.DB, cipher *StageDataCipher) *PostgreSQLStore {
	return &PostgreSQLStore{db: db, cipher: cipher}
}

// CreateSession 插入新会话
func (s *PostgreSQLStore) CreateSession(ctx context.Context, session *TssSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tss_sessions (session_id, wallet_id, customer_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.SessionID, session.WalletID, session.CustomerID, session.State,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to insert session")
	}
	return nil
}

// GetSession 按 session_id 查询会话
func (s *PostgreSQLStore) GetSession(ctx context.Context, sessionID string) (*TssSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, wallet_id, customer_id, state, created_at, updated_at
		FROM tss_sessions WHERE session_id = $1`, sessionID)

	var session TssSession
	err := row.Scan(&session.SessionID, &session.WalletID, &session.CustomerID,
		&session.State, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get session")
	}
	return &session, nil
}

// MarkSessionAborted 将会话置为 ABORTED（对 ABORTED 幂等，对 COMPLETED 拒绝）
func (s *PostgreSQLStore) MarkSessionAborted(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tss_sessions SET state = $1, updated_at = now()
		WHERE session_id = $2 AND state != $3`,
		SessionStateAborted, sessionID, SessionStateCompleted,
	)
	if err != nil {
		return errors.Wrap(err, "failed to abort session")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read rows affected")
	}
	if affected == 0 {
		// 区分不存在与已完成
		session, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.State == SessionStateCompleted {
			return ErrInvalidSessionState
		}
	}
	return nil
}

// CreateStage 插入新阶段，(session_id, stage_type) 唯一
func (s *PostgreSQLStore) CreateStage(ctx context.Context, stage *TssStage) error {
	data, err := s.sealStageData(stage.StageData)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tss_stages (session_id, stage_type, stage_status, stage_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		stage.SessionID, stage.StageType, stage.StageStatus, data,
		stage.CreatedAt, stage.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to insert stage")
	}
	return nil
}

// GetStage 按 (session_id, stage_type) 查询阶段
func (s *PostgreSQLStore) GetStage(ctx context.Context, sessionID string, stageType StageType) (*TssStage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, stage_type, stage_status, stage_data, created_at, updated_at
		FROM tss_stages WHERE session_id = $1 AND stage_type = $2`, sessionID, stageType)

	stage, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get stage")
	}
	stage.StageData, err = s.openStageData(stage.StageData)
	if err != nil {
		return nil, err
	}
	return stage, nil
}

// ListStages 列出会话的全部阶段
func (s *PostgreSQLStore) ListStages(ctx context.Context, sessionID string) ([]*TssStage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, stage_type, stage_status, stage_data, created_at, updated_at
		FROM tss_stages WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stages")
	}
	defer rows.Close()

	var stages []*TssStage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan stage")
		}
		stage.StageData, err = s.openStageData(stage.StageData)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, errors.Wrap(rows.Err(), "failed to iterate stages")
}

// AdvanceStage 条件更新：单条 UPDATE 完成 compare-and-set。
// 两个并发请求竞争同一次推进时，数据库保证至多一条语句命中，败者收到 ErrStatusConflict。
func (s *PostgreSQLStore) AdvanceStage(ctx context.Context, sessionID string, stageType StageType, expected StageStatus, next StageStatus, data json.RawMessage) error {
	sealed, err := s.sealStageData(data)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tss_stages SET stage_status = $1, stage_data = $2, updated_at = now()
		WHERE session_id = $3 AND stage_type = $4 AND stage_status = $5`,
		next, sealed, sessionID, stageType, expected,
	)
	if err != nil {
		return errors.Wrap(err, "failed to advance stage")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read rows affected")
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (s *PostgreSQLStore) sealStageData(data json.RawMessage) ([]byte, error) {
	if s.cipher == nil || len(data) == 0 {
		return data, nil
	}
	sealed, err := s.cipher.Encrypt(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt stage data")
	}
	return sealed, nil
}

func (s *PostgreSQLStore) openStageData(data json.RawMessage) (json.RawMessage, error) {
	if s.cipher == nil || len(data) == 0 {
		return data, nil
	}
	opened, err := s.cipher.Decrypt(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt stage data")
	}
	return opened, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (*TssStage, error) {
	var stage TssStage
	var data []byte
	err := row.Scan(&stage.SessionID, &stage.StageType, &stage.StageStatus, &data,
		&stage.CreatedAt, &stage.UpdatedAt)
	if err != nil {
		return nil, err
	}
	stage.StageData = data
	return &stage, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
