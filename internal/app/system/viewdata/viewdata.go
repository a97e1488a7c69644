// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/sessionctx"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// SiteName is shown in the page header and title.
const SiteName = "VolunteerHub"

// NoticeSource pops queued flash notices.
type NoticeSource interface {
	Notices(w http.ResponseWriter, r *http.Request) []string
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(w, r, h.Sessions, "Page Title"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from the session controller)
	IsLoggedIn bool
	Email      string
	UserName   string
	HasProfile bool

	// Page context
	Title       string
	CurrentPath string
	CSRFToken   string // Token for form submission

	// One-time messages from the previous action
	Notices []string
}

// NewBaseVM builds the common view fields. notices may be nil.
func NewBaseVM(w http.ResponseWriter, r *http.Request, notices NoticeSource, title string) BaseVM {
	sc := sessionctx.FromRequest(r)
	vm := BaseVM{
		SiteName:    SiteName,
		IsLoggedIn:  sc.Authenticated(),
		Email:       sc.Email(),
		Title:       title,
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if p := sc.Profile(); p != nil {
		vm.HasProfile = true
		vm.UserName = p.FullName()
	}
	if vm.UserName == "" {
		vm.UserName = vm.Email
	}
	if notices != nil {
		vm.Notices = notices.Notices(w, r)
	}
	return vm
}
