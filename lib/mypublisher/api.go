package mypublisher

import (
	"context"

	"github.com/samadsayyed/donation-portal-sub000/lib/myevents"
)

//go:generate mockgen -source=api.go -package mypublisher -destination publisher_mock.go Publisher
type Publisher interface {
	Publish(c context.Context, topic string, env myevents.Event) error
}
