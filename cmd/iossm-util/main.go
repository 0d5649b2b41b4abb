// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

func main() {
	Execute()
}
