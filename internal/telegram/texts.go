package telegram

// UI texts. Alerts are formatted separately in notifier.go.
const (
	startText = "🤖 <b>Welcome to the USDC monitoring bot!</b>\n\n" +
		"I watch a USDC balance on Arbitrum and alert you when it crosses your threshold.\n\n" +
		"<b>📋 Commands:</b>\n\n" +
		"<b>Monitoring</b>\n" +
		"/monitor [address] [threshold] — start monitoring\n" +
		"e.g. <code>/monitor 0xc477... 1000</code>\n\n" +
		"/stop — stop monitoring\n" +
		"/status — current balance and state\n\n" +
		"<b>Settings</b>\n" +
		"/settings — show current settings\n" +
		"/address [address] — change the watched address\n" +
		"/threshold [amount] — change the threshold (USDC)\n" +
		"/direction [above|below] — which side of the threshold alerts\n" +
		"/checkinterval [seconds] — change the check interval\n" +
		"/alertinterval [minutes] — change the alert interval\n" +
		"/alerton — enable alerts\n" +
		"/alertoff — disable alerts\n\n" +
		"<b>Help</b>\n" +
		"/help — detailed help\n\n" +
		"Use /monitor to get started!"

	helpText = "<b>📖 Help</b>\n\n" +
		"<b>1. Start monitoring</b>\n" +
		"<code>/monitor [address] [threshold]</code>\n\n" +
		"Example:\n" +
		"<code>/monitor 0xc47756133753280c37b227c24782984e021c4544 1000</code>\n\n" +
		"• address: an Arbitrum wallet address (starts with 0x)\n" +
		"• threshold: a USDC amount; with direction <i>above</i> (the default) you are alerted once the balance reaches it\n\n" +
		"<b>2. Change settings</b>\n\n" +
		"<code>/address 0x…</code> — new address\n" +
		"<code>/threshold 500</code> — threshold of 500 USDC\n" +
		"<code>/direction below</code> — alert when the balance drops under the threshold\n" +
		"<code>/checkinterval 30</code> — check every 30 seconds\n" +
		"<code>/alertinterval 10</code> — at most one alert per 10 minutes\n" +
		"<code>/alertoff</code> — keep monitoring, mute alerts\n" +
		"<code>/alerton</code> — unmute\n\n" +
		"<b>3. Inspect</b>\n\n" +
		"<code>/status</code> — balance and alert state\n" +
		"<code>/settings</code> — settings only\n\n" +
		"<b>4. Stop</b>\n\n" +
		"<code>/stop</code> — stop and forget the monitor\n\n" +
		"<b>💡 Notes</b>\n" +
		"• monitoring keeps running in the background\n" +
		"• settings survive bot restarts\n" +
		"• several chats can monitor independently"

	noMonitorText = "❌ No monitor is running.\n\nStart one with: /monitor [address] [threshold]"
	firstText     = "❌ Start monitoring first with /monitor."
)
