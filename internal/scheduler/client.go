package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	taskMaxRetry      = 3
	taskTimeout       = 5 * time.Minute
	inlineTaskTimeout = 2 * time.Minute
)

// Client enqueues background tasks. Without Redis it runs them in-process
// on a goroutine and only logs failures.
type Client struct {
	client *asynq.Client
	queue  string
	inline *Jobs
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
		log:    log.WithComponent("tasks"),
	}, nil
}

// NewInlineClient returns a client that runs every task through jobs.
func NewInlineClient(jobs *Jobs, log *logger.Logger) *Client {
	return &Client{inline: jobs, log: log.WithComponent("tasks")}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Wait blocks until in-process tasks have finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// EnqueueDuplicateCheck schedules duplicate detection for a freshly captured
// lead and returns the task id. Inline runs return an empty id.
func (c *Client) EnqueueDuplicateCheck(ctx context.Context, tenantID, leadID uuid.UUID) (string, error) {
	if c.client == nil {
		c.runInline(ctx, TaskDuplicateCheck, func(ctx context.Context) error {
			return c.inline.CheckDuplicates(ctx, tenantID, leadID)
		})
		return "", nil
	}

	task, err := NewDuplicateCheckTask(DuplicateCheckPayload{TenantID: tenantID.String(), LeadID: leadID.String()})
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

// EnqueueRecalculateScores schedules a tenant-wide rescore.
func (c *Client) EnqueueRecalculateScores(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if c.client == nil {
		c.runInline(ctx, TaskRecalculateScores, func(ctx context.Context) error {
			return c.inline.RecalculateScores(ctx, tenantID)
		})
		return "", nil
	}

	task, err := NewRecalculateScoresTask(RecalculateScoresPayload{TenantID: tenantID.String()})
	if err != nil {
		return "", err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info.ID, nil
}

func (c *Client) runInline(ctx context.Context, taskType string, run func(context.Context) error) {
	if c.inline == nil {
		c.log.Warn("task dropped, no runner configured", "task", taskType)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineTaskTimeout)
		defer cancel()
		if err := run(taskCtx); err != nil {
			c.log.Warn("in-process task failed", "task", taskType, "error", err)
		}
	}()
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
