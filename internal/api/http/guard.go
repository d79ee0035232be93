package http

import (
	"bytes"
	"html/template"
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/domain"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

// RestrictedNotice is the only text a denied client sees.
const RestrictedNotice = "Page Restricted"

var restrictedPage = template.Must(template.New("restricted").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Notice}}</title>
<noscript><meta http-equiv="refresh" content="0;url={{.Target}}"></noscript>
</head>
<body>
<p>{{.Notice}}</p>
<script>
alert({{.Notice}});
window.location.href = {{.Target}};
</script>
</body>
</html>
`))

// AdminPrefix is the route prefix of every guarded view. A referring page under
// it is never a redirect target.
const AdminPrefix = "/admin"

// GuardMetrics counts guard outcomes.
type GuardMetrics interface {
	RecordGuardDecision(allowed bool)
}

// RequireRoles fronts an administrative view. The credential is read from the
// request and checked on every call; a denied client is sent back where it
// came from, or to the root.
func RequireRoles(guard *auth.Guard, logger *zap.Logger, metrics GuardMetrics, roles ...domain.Role) fiber.Handler {
	required := domain.NewRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		decision := guard.Authorize(auth.CredentialFromRequest(c), required)
		if metrics != nil {
			metrics.RecordGuardDecision(decision.Allowed)
		}
		if decision.Allowed {
			auth.SetIdentity(c, decision.Identity)
			return c.Next()
		}

		target := redirectTarget(c)
		logger.Info("access denied",
			zap.String("path", c.Path()),
			zap.String("reason", decision.Reason),
			zap.String("user_id", decision.Identity.UserID),
			zap.String("redirect", target),
		)
		return denyResponse(c, target)
	}
}

// Authenticate requires any valid credential and stores the caller.
func Authenticate(guard *auth.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := guard.Authorize(auth.CredentialFromRequest(c), domain.AnyRole)
		if !decision.Allowed {
			return apperrors.NewUnauthorized("authentication required")
		}
		auth.SetIdentity(c, decision.Identity)
		return c.Next()
	}
}

func denyResponse(c *fiber.Ctx, target string) error {
	c.Status(fiber.StatusForbidden)
	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		var buf bytes.Buffer
		if err := restrictedPage.Execute(&buf, struct{ Notice, Target string }{RestrictedNotice, target}); err != nil {
			return apperrors.NewInternalError(err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
	return c.JSON(fiber.Map{"error": fiber.Map{
		"code":    apperrors.CodeForbidden,
		"message": RestrictedNotice,
		"details": fiber.Map{"redirect": target},
	}})
}

// redirectTarget returns the referring page when it is on this site and is
// not a restricted view; otherwise the root.
func redirectTarget(c *fiber.Ctx) string {
	referer := strings.TrimSpace(c.Get(fiber.HeaderReferer))
	if referer == "" {
		return "/"
	}
	ref, err := url.Parse(referer)
	if err != nil {
		return "/"
	}
	if ref.IsAbs() || ref.Host != "" {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "/"
		}
		if !strings.EqualFold(ref.Host, c.Hostname()) {
			return "/"
		}
	}
	if !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	if restrictedPath(ref.Path) || strings.EqualFold(strings.TrimRight(ref.Path, "/"), strings.TrimRight(c.Path(), "/")) {
		return "/"
	}
	return ref.RequestURI()
}

func restrictedPath(p string) bool {
	cleaned := strings.ToLower(path.Clean(p))
	return cleaned == AdminPrefix || strings.HasPrefix(cleaned, AdminPrefix+"/")
}
