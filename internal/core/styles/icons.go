package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconMail = ""
	IconLock = ""
	IconBell = ""
)
