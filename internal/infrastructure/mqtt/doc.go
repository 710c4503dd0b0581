// Package mqtt connects the IR bridge to the site's MQTT broker.
//
// Each device owns a topic subtree:
//
//	graylogic/ir/{device_id}/command/{action}   requests (subscribed)
//	graylogic/ir/{device_id}/status             one event per outcome
//	graylogic/ir/{device_id}/commands           command document replies
//	graylogic/ir/{device_id}/health             retained presence / last will
//
// The client keeps subscriptions across reconnects and recovers from
// handler panics. While the broker is unreachable every publish returns
// ErrNotConnected; callers drop the message and local state is unaffected.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Site.DeviceID))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().CommandWildcard(), 1, handle)
package mqtt
