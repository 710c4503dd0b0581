// Package scheduler replays stored IR commands on cron schedules taken
// from the schedules section of the configuration:
//
//	schedules:
//	  - spec: "0 7 * * 1-5"
//	    command: "heater_on"
//	  - spec: "@every 2h"
//	    command: "fan_toggle"
package scheduler
