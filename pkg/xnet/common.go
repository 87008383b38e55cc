package xnet

import (
	"time"
)

const (
	udpNetwork = "udp"
	tcpNetwork = "tcp"

	writeTimeout = 10 * time.Second // 写超时时间

	writeChanLimit = 200 // 写channel大小
	maxMessageSize = 512 // websocket 客户端消息上限, 仅用于读取close帧
)
