package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"golang.org/x/xerrors"

	"github.com/carrotlabs/go-carrot-market/constants"
)

// ExecState is the transient per-job execution record kept between the
// run and finalize steps so a failed upload or completion call can be
// retried without re-running the worker.
type ExecState struct {
	JobID      int64  `json:"job_id"`
	Kind       string `json:"kind"`
	Transcript string `json:"transcript"`
	RawResult  string `json:"raw_result"`
	Locator    string `json:"locator"`
	UpdatedAt  int64  `json:"updated_at"`
}

// StateStore holds pending execution state. Load returns (nil, nil) when
// no state is retained for the job.
type StateStore interface {
	Save(state *ExecState) error
	Load(jobID int64) (*ExecState, error)
	Delete(jobID int64) error
}

// RedisStateStore keeps execution state in redis hashes with a bounded
// TTL; expired state means the job has to be re-run.
type RedisStateStore struct{}

func NewRedisStateStore() *RedisStateStore {
	return &RedisStateStore{}
}

func execKey(jobID int64) string {
	return fmt.Sprintf("%s%d", constants.REDIS_EXEC_PREFIX, jobID)
}

func (r *RedisStateStore) Save(state *ExecState) error {
	conn := GetRedisClient()
	defer conn.Close()

	state.UpdatedAt = time.Now().Unix()
	key := execKey(state.JobID)

	args := []interface{}{
		key,
		"job_id", state.JobID,
		"kind", state.Kind,
		"transcript", state.Transcript,
		"raw_result", state.RawResult,
		"locator", state.Locator,
		"updated_at", state.UpdatedAt,
	}
	if _, err := conn.Do("HMSET", args...); err != nil {
		return xerrors.Errorf("saving exec state for job %d: %w", state.JobID, err)
	}
	if _, err := conn.Do("EXPIRE", key, constants.ExecStateTTL); err != nil {
		return xerrors.Errorf("setting exec state ttl for job %d: %w", state.JobID, err)
	}
	return nil
}

func (r *RedisStateStore) Load(jobID int64) (*ExecState, error) {
	conn := GetRedisClient()
	defer conn.Close()

	values, err := redis.StringMap(conn.Do("HGETALL", execKey(jobID)))
	if err != nil {
		return nil, xerrors.Errorf("loading exec state for job %d: %w", jobID, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	state := &ExecState{JobID: jobID}
	state.Kind = values["kind"]
	state.Transcript = values["transcript"]
	state.RawResult = values["raw_result"]
	state.Locator = values["locator"]
	fmt.Sscanf(values["updated_at"], "%d", &state.UpdatedAt)
	return state, nil
}

func (r *RedisStateStore) Delete(jobID int64) error {
	conn := GetRedisClient()
	defer conn.Close()

	if _, err := conn.Do("DEL", execKey(jobID)); err != nil {
		return xerrors.Errorf("deleting exec state for job %d: %w", jobID, err)
	}
	return nil
}

// MemoryStateStore is an in-process StateStore for single-node setups
// without redis.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[int64]*ExecState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[int64]*ExecState)}
}

func (m *MemoryStateStore) Save(state *ExecState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.UpdatedAt = time.Now().Unix()
	clone := *state
	m.states[state.JobID] = &clone
	return nil
}

func (m *MemoryStateStore) Load(jobID int64) (*ExecState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[jobID]
	if !ok {
		return nil, nil
	}
	clone := *state
	return &clone, nil
}

func (m *MemoryStateStore) Delete(jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, jobID)
	return nil
}
