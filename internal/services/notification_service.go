package services

import (
	"context"
	"fmt"
	"net"
	neturl "net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/logger"
	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/util"
)

// Notifier records sync events. NotificationService is the production
// implementation.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

// NotificationFilter narrows List. Zero values match everything.
type NotificationFilter struct {
	UnreadOnly bool
	SourceID   uint
	Limit      int
}

type NotificationService struct {
	DB   *gorm.DB
	URLs []string

	send func(url, message string) error
	wg   sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, urls []string) *NotificationService {
	return &NotificationService{DB: db, URLs: urls, send: func(url, message string) error {
		return shoutrrr.Send(url, message)
	}}
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

func normalizeURL(rawURL string) string {
	matches := discordWebhookRegex.FindStringSubmatch(rawURL)
	if len(matches) == 3 {
		return fmt.Sprintf("discord://%s@%s", matches[2], matches[1])
	}
	return rawURL
}

// Internal Notifications (DB)

func (s *NotificationService) Create(ctx context.Context, n *models.Notification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

func (s *NotificationService) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.WithContext(ctx).Order("created_at desc")
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if filter.SourceID != 0 {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("read", true).Error
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

// Notify stores the event and forwards it to every configured shoutrrr URL.
// Delivery failures are logged, never returned.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	if err := s.Create(ctx, n); err != nil {
		logger.Component("notify").WithError(err).Warn("failed to store notification")
	}
	s.SendExternal(n.Title, n.Message)
}

// External Notifications (Shoutrrr)

func (s *NotificationService) SendExternal(title, message string) {
	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, raw := range s.URLs {
		url := normalizeURL(raw)
		if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			if _, err := validateWebhookURL(url); err != nil {
				logger.Component("notify").WithField("url", util.SanitizeForLog(raw)).WithError(err).Warn("skipping notification target")
				continue
			}
		}
		s.wg.Add(1)
		go func(url string) {
			defer s.wg.Done()
			if err := s.send(url, msg); err != nil {
				logger.Component("notify").WithError(err).Warn("failed to send notification")
			}
		}(url)
	}
}

// Wait blocks until in-flight external deliveries finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// isPrivateIP returns true for RFC1918, loopback and link-local addresses.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() {
		return true
	}
	return false
}

// validateWebhookURL parses and validates webhook URLs and ensures
// the resolved addresses are not private/local.
func validateWebhookURL(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}

	// Allow explicit loopback/localhost addresses for local tests.
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return u, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("disallowed host IP: %s", ip.String())
		}
	}
	return u, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *models.Notification) {}
