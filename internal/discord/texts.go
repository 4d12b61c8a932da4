package discord

// Chat replies.
const (
	helpText = "**Stock watcher commands**\n" +
		"`%[1]sstatus` show tracked products, interval and schedule\n" +
		"`%[1]ssetinterval <minutes>` change how often pages are checked\n" +
		"`%[1]ssetproducts <%[2]s>` choose which products to track\n" +
		"`%[1]slog [lines]` show the last lines of the log (default %[3]d)\n" +
		"`%[1]sclear [count]` delete recent messages (default %[4]d, needs Manage Messages)"

	statusFmt = "**Tracked products:** %s\n" +
		"**Check interval:** %s\n" +
		"**Poller:** %s"

	weekendFmt     = "Stock checks are paused for the weekend, resuming in %s."
	unknownCommand = "Unknown command `%s`. Try `%shelp`."

	intervalUsage = "Usage: `%ssetinterval <minutes>` where minutes is a whole number from 1 to %d."
	intervalSet   = "Check interval set to %s. The next check runs in %s."

	productsUsage   = "Usage: `%ssetproducts <%s>`."
	productsUnknown = "Unknown product `%s`. Valid options: %s."
	productsSet     = "Now tracking: %s."

	logUsage    = "Line count must be a whole number of at least 1."
	logTooLong  = "Log output too long, request fewer lines."
	logDisabled = "Logging to a file is disabled."
	logFailed   = "Could not read the log file: %v"

	clearUsage     = "Usage: `%sclear [count]` where count is between 1 and %d."
	clearDenied    = "Permission denied: you need Manage Messages to clear messages."
	clearDone      = "Cleared %s."
	clearFailed    = "Could not clear messages: %v"
	clearNothing   = "No messages to clear."
	internalFailed = "Something went wrong, check the log for details."
)
