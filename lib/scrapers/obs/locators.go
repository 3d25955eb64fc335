package obs

const (
	DefaultLoginURL = "https://obs.beykent.edu.tr/oibs/std/login.aspx"
	DefaultHomeURL  = "https://obs.beykent.edu.tr/oibs/std/index.aspx?curOp=0"
)

// login page
const (
	usernameInput = "#txtParamT01"
	passwordInput = "#txtParamT02"
	captchaImage  = "#imgCaptchaImg"
	captchaInput  = "#txtSecCode"
	loginButton   = "#btnLogin"
)

// post-login content, everything interesting lives inside IFRAME1
const (
	contentFrame  = "iframe[name=IFRAME1]"
	requiredAlert = "#divRequired"
)

// the sidebar has no stable ids, these match the portal's rendered
// menu structure
const (
	menuButton       = "/html/body/form/div[6]/aside/div[2]/nav/span/ul/li[3]/a"
	resultsMenuEntry = "/html/body/form/div[6]/aside/div[2]/nav/span/ul/li[3]/ul/li[4]/a"
	resultsTable     = "#grd_not_listesi"
)

// declarative marker to exam type mapping, matched in this order
// against each score span
var examMarkers = []struct {
	Marker string
	Type   ExamType
}{
	{"Vize :", ExamMidterm},
	{"Final :", ExamFinal},
	{"Büt :", ExamMakeUp},
}
