// Package pages holds the page objects driving the oCIS web UI: the login
// session and the 3D model viewer. Every page object is bound to one
// scenario's playwright.Page; none of them keep global state.
package pages

import (
	"strconv"
	"strings"
)

// Login and account menu.
const (
	selUsername       = "#oc-login-username"
	selPassword       = "#oc-login-password"
	selLoginButton    = `button[type="submit"]`
	selWebContent     = "#web-content"
	selUserMenuButton = "#_userMenuButton"
	selLogout         = "#oc-topbar-account-logout"
)

// Files list and upload.
const (
	selUploadMenuButton = "#upload-menu-btn"
	selFileUploadInput  = "#files-file-upload-input"
	selUploadInfoClose  = "#close-upload-info-btn"
	selFilesTable       = "#files-space-table"
)

// Viewer.
const (
	selTopbar              = ".oc-app-top-bar .oc-resource"
	selTopbarResource      = "#app-top-bar-resource"
	selTopbarBasename      = "#app-top-bar-resource .oc-resource-basename"
	selTopbarExtension     = "#app-top-bar-resource .oc-resource-extension"
	selViewport            = "#preview .model-viewport"
	selViewportWrapper     = "#preview #scene-wrapper"
	selViewportDescription = "#preview h1.oc-invisible-sr"
	selViewportCanvas      = "#preview .model-viewport canvas"
	selButtonPrevious      = ".preview-controls-previous"
	selButtonNext          = ".preview-controls-next"
	selButtonFullscreen    = ".preview-controls-fullscreen"
	selButtonReset         = ".preview-controls-reset"
)

const resourceNameAttr = "data-test-resource-name"

// ResourceRow selects the files-list entry whose resource name is exactly name.
func ResourceRow(name string) string {
	return selFilesTable + " " + attrEquals(resourceNameAttr, name)
}

// TopbarResource selects the viewer topbar entry for name.
func TopbarResource(name string) string {
	return selTopbarResource + " " + attrEquals(resourceNameAttr, name)
}

func attrEquals(attr, value string) string {
	return "[" + attr + "=" + cssString(value) + "]"
}

// cssString renders s as a double-quoted CSS string token.
func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == 0:
			b.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f:
			// Hex escapes end with a space so a following hex digit is not absorbed.
			b.WriteString(`\` + strconv.FormatInt(int64(r), 16) + " ")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
