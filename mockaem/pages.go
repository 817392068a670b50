package mockaem

import (
	"html/template"
)

// The pages reproduce only the parts of the AEM author UI that the tests touch: a sign-in page
// whose form is hidden until the "sign in locally" accordion is opened, the start page shown
// after a successful login, and an Assets console whose upload dialog opens once a file has
// been chosen.

var signInPageTemplate = template.Must(template.New("signIn").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
#login-box { display: none; }
#login-box.is-open { display: block; }
.error { color: #c00; }
</style>
</head>
<body>
<main>
<button id="{{.RevealID}}" type="button" aria-expanded="false"
  onclick="document.getElementById('login-box').classList.add('is-open'); this.setAttribute('aria-expanded', 'true');">
  Sign in locally (admin tasks only)
</button>
<div id="login-box">
<form id="{{.FormID}}" name="login" method="POST" action="{{.Action}}" novalidate>
<input type="hidden" name="_charset_" value="UTF-8">
<input type="hidden" name="resource" value="{{.Resource}}">
<label>User name <input id="{{.UsernameID}}" name="j_username" type="text" autocomplete="off"></label>
<label>Password <input id="{{.PasswordID}}" name="j_password" type="password" autocomplete="off"></label>
<button id="{{.SubmitID}}" type="submit">Sign In</button>
</form>
</div>
{{if .Failed}}<div class="error" role="alert">Invalid login. Please try again.</div>{{end}}
</main>
</body>
</html>
`)) //nolint:gochecknoglobals

var startPageTemplate = template.Must(template.New("start").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
</head>
<body>
<coral-shell>
<coral-shell-header>Adobe Experience Manager</coral-shell-header>
<nav>
<h1>{{.Heading}}</h1>
<ul>
<li><a href="/sites.html">Sites</a></li>
<li><a href="{{.AssetsPath}}">Assets</a></li>
<li><a href="{{.LogoutPath}}">Sign Out</a></li>
</ul>
</nav>
<p>Signed in as {{.Username}}</p>
</coral-shell>
<script>console.log("start page loaded for {{.Username}}");</script>
</body>
</html>
`)) //nolint:gochecknoglobals

var assetsConsoleTemplate = template.Must(template.New("assets").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
coral-dialog { display: none; }
coral-dialog.is-open { display: block; }
</style>
</head>
<body>
<coral-shell>
<coral-shell-header>Adobe Experience Manager</coral-shell-header>
<main>
<h1>Files</h1>
<dam-chunkfileupload><input type="file" name="file" multiple></dam-chunkfileupload>
<ul id="assets">{{range .Assets}}<li>{{.}}</li>{{end}}</ul>
<coral-dialog id="upload-dialog">
<coral-dialog-header>Upload</coral-dialog-header>
<coral-dialog-footer>
<button type="button" variant="secondary" id="upload-cancel">Cancel</button>
<button type="button" variant="primary" id="upload-start">Upload</button>
</coral-dialog-footer>
</coral-dialog>
</main>
</coral-shell>
<script>
const input = document.querySelector("dam-chunkfileupload > input");
const dialog = document.getElementById("upload-dialog");
input.addEventListener("change", () => dialog.classList.add("is-open"));
document.getElementById("upload-cancel").addEventListener("click", () => dialog.classList.remove("is-open"));
document.getElementById("upload-start").addEventListener("click", () => {
  const body = new FormData();
  for (const f of input.files) {
    body.append("file", f, f.name);
  }
  dialog.classList.remove("is-open");
  fetch({{.UploadPath}}, {method: "POST", body: body, credentials: "same-origin"})
    .then(resp => console.log("upload finished with HTTP " + resp.status));
});
</script>
</body>
</html>
`)) //nolint:gochecknoglobals

type signInPageParams struct {
	Title      string
	RevealID   string
	FormID     string
	Action     string
	Resource   string
	UsernameID string
	PasswordID string
	SubmitID   string
	Failed     bool
}

type startPageParams struct {
	Title      string
	Heading    string
	LogoutPath string
	AssetsPath string
	Username   string
}

type assetsConsoleParams struct {
	Title      string
	UploadPath string
	Assets     []string
}
