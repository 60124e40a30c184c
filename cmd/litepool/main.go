package main

import "github.com/jirevwe/litepool"

func main() {
	litepool.Main()
}
