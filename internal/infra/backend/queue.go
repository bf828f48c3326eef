package backend

import (
	"context"

	"github.com/aalvaropc/doclane/internal/domain"
)

const queuePath = apiPrefix + "/queue"

type Queue struct {
	c Caller
}

func (q *Queue) List(ctx context.Context, skip, limit int) ([]domain.QueueItem, error) {
	var out []domain.QueueItem
	if err := q.c.Get(ctx, queuePath, page(skip, limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queue) Get(ctx context.Context, id int64) (domain.QueueItem, error) {
	var out domain.QueueItem
	err := q.c.Get(ctx, idPath(queuePath, id), nil, &out)
	return out, err
}

func (q *Queue) Create(ctx context.Context, item domain.QueueItemCreate) (domain.QueueItem, error) {
	if item.Priority != 0 {
		item.Priority = domain.ClampPriority(item.Priority)
	}
	var out domain.QueueItem
	err := q.c.Post(ctx, queuePath, item, &out)
	return out, err
}

func (q *Queue) Update(ctx context.Context, id int64, patch domain.QueueItemPatch) (domain.QueueItem, error) {
	var out domain.QueueItem
	err := q.c.Put(ctx, idPath(queuePath, id), patch, &out)
	return out, err
}

func (q *Queue) Delete(ctx context.Context, id int64) (domain.QueueItem, error) {
	var out domain.QueueItem
	err := q.c.Delete(ctx, idPath(queuePath, id), &out)
	return out, err
}

func (q *Queue) Reprocess(ctx context.Context, id int64) (domain.QueueItem, error) {
	var out domain.QueueItem
	err := q.c.Post(ctx, idPath(queuePath, id, "reprocess"), nil, &out)
	return out, err
}
