package mypubsub

import (
	"context"
	"os"
)

// fakePubSub swallows everything, used for local runs and tests where no
// subscriber exists anyway
type fakePubSub struct {
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakePubSub
	}
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	return &fakePubSub{}, func() {
	}, nil
}

func (p *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	return nil
}

func (p *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (p *fakePubSub) Publish(c context.Context, topic string, data string) error {
	return nil
}
