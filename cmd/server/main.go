// Package main 是聊天机器人服务端的入口点
package main

func main() {
	Execute()
}
