package service

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(serviceAccountPath string, logger *zap.Logger) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("fcm")
	ctx := context.Background()
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		logger.Error("failed to init Firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Error("failed to get Messaging client", zap.Error(err))
		return nil
	}
	return &FCMService{client: client, logger: logger}
}

// Configured reports whether the service can actually deliver. Nil-receiver
// safe, since an unconfigured deployment constructs a nil service.
func (s *FCMService) Configured() bool {
	return s != nil && s.client != nil
}

// SendToTopic delivers a notification to every subscriber of a topic.
func (s *FCMService) SendToTopic(ctx context.Context, title, body, topic string, data map[string]string) error {
	if s == nil || topic == "" {
		return nil
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Topic: topic,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		s.logger.Error("topic send failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	s.logger.Info("notification sent", zap.String("topic", topic), zap.String("message_id", id))
	return nil
}

// SendToToken delivers a notification to a single device token.
func (s *FCMService) SendToToken(ctx context.Context, title, body, token string, data map[string]string) error {
	if s == nil || token == "" {
		return nil
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		s.logger.Error("token send failed", zap.Error(err))
		return err
	}
	s.logger.Info("notification sent to token", zap.String("message_id", id))
	return nil
}

// SubscribeToTopics subscribes a device token to each topic.
func (s *FCMService) SubscribeToTopics(ctx context.Context, token string, topics []string) error {
	if s == nil || token == "" {
		return nil
	}
	for _, topic := range topics {
		if _, err := s.client.SubscribeToTopic(ctx, []string{token}, topic); err != nil {
			s.logger.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			return err
		}
	}
	return nil
}

// UnsubscribeFromTopic removes a device token from a topic.
func (s *FCMService) UnsubscribeFromTopic(ctx context.Context, token, topic string) error {
	if s == nil || token == "" {
		return nil
	}
	if _, err := s.client.UnsubscribeFromTopic(ctx, []string{token}, topic); err != nil {
		s.logger.Error("unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}
