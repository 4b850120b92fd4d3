// Copyright © 2023 Sloan Childers
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/metallurk/cctv/base"
	"github.com/pborman/getopt"
)

func main() {
	svr := getopt.StringLong("svr", 's', "localhost:8080", "cctv server addr:port")
	key := getopt.StringLong("api-key", 'a', "", "cctv server API key")
	command := getopt.StringLong("command", 'c', "", "recalibrate, stop, edit, snapshot or save")
	label := getopt.StringLong("label", 'l', "", "snapshot label")
	mask := getopt.StringLong("mask", 'm', "", "add a mask: x1,y1,x2,y2")
	erase := getopt.StringLong("erase", 'e', "", "remove masks under a point: x,y")
	getopt.Parse()

	client := resty.New().SetBaseURL(fmt.Sprintf("http://%s/v1", *svr)).SetHeader("X-Api-Key", *key)

	var resp *resty.Response
	var err error
	switch {
	case *mask != "":
		values, perr := parseInts(*mask, 4)
		if perr != nil {
			fail(perr)
		}
		rect := base.Rect{X1: values[0], Y1: values[1], X2: values[2], Y2: values[3]}
		resp, err = client.R().SetHeader("Content-Type", "application/json").SetBody(rect).Post("/masks")
	case *erase != "":
		values, perr := parseInts(*erase, 2)
		if perr != nil {
			fail(perr)
		}
		resp, err = client.R().
			SetQueryParam("x", strconv.Itoa(values[0])).
			SetQueryParam("y", strconv.Itoa(values[1])).
			Delete("/masks")
	case *command != "":
		req := client.R().SetQueryParam("command", *command)
		if *label != "" {
			req.SetQueryParam("label", *label)
		}
		resp, err = req.Get("/command")
	default:
		resp, err = client.R().Get("/status")
	}
	if err != nil {
		fail(err)
	}
	fmt.Println(string(resp.Body()))
	if resp.IsError() {
		fmt.Println("http status ", resp.StatusCode())
		os.Exit(1)
	}
}

func parseInts(value string, count int) ([]int, error) {
	parts := strings.Split(value, ",")
	if len(parts) != count {
		return nil, fmt.Errorf("expected %d comma separated values, got %q", count, value)
	}
	out := make([]int, 0, count)
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func fail(err error) {
	fmt.Println(err)
	os.Exit(1)
}
