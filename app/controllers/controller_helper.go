package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
)

var validate = validator.New()

// respondError writes the JSON error shape for err. Internal errors are logged, never echoed.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   string(apperr.KindOf(err)),
		"message": apperr.Message(err),
	})
}

// bindJSON parses the request body into dst and runs its validate tags.
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return apperr.InvalidInput("%s is invalid (%s)", lowerFirst(f.Field()), f.Tag())
		}
		return apperr.InvalidInput("%s", err.Error())
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// paramID reads a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("%s must be a positive number", name)
	}
	return uint(id), nil
}

// queryInt reads an optional integer query parameter; absent means 0
func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidInput("%s must be a number", name)
	}
	return v, nil
}

// GetClientIP determines the actual client IP address considering proxies and dual stack.
// Returns both IPv4 and IPv6 addresses if available
func GetClientIP(c *fiber.Ctx) (string, string) {
	ipv4 := ""
	ipv6 := ""

	// 1. Cloudflare provides the original client IP
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		if strings.Contains(cfIP, ":") {
			ipv6 = cfIP
			ipv4 = firstForwarded(c, false)
		} else {
			ipv4 = cfIP
			ipv6 = firstForwarded(c, true)
		}
		return ipv4, ipv6
	}

	// 2. X-Forwarded-For; the first entry is the original client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if ip == "" {
				continue
			}
			if strings.Contains(ip, ":") {
				if ipv6 == "" {
					ipv6 = ip
				}
			} else if ipv4 == "" {
				ipv4 = ip
			}
		}
		if ipv4 != "" || ipv6 != "" {
			return ipv4, ipv6
		}
	}

	// 3. Direct connection
	ipAddr := c.IP()
	switch {
	case strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, "."):
		ipv4 = strings.TrimPrefix(ipAddr, "::ffff:")
	case strings.Contains(ipAddr, ":"):
		ipv6 = ipAddr
	default:
		ipv4 = ipAddr
	}

	if real := c.Get("X-Real-IP"); real != "" {
		if strings.Contains(real, ":") && ipv6 == "" {
			ipv6 = real
		} else if !strings.Contains(real, ":") && ipv4 == "" {
			ipv4 = real
		}
	}

	return ipv4, ipv6
}

func firstForwarded(c *fiber.Ctx, v6 bool) string {
	for _, ip := range strings.Split(c.Get("X-Forwarded-For"), ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" && strings.Contains(ip, ":") == v6 {
			return ip
		}
	}
	return ""
}

// ClientKey is the rate limiter key: IPv4 when known, else IPv6
func ClientKey(c *fiber.Ctx) string {
	ipv4, ipv6 := GetClientIP(c)
	if ipv4 != "" {
		return ipv4
	}
	return ipv6
}
