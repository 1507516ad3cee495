// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package carrow is a minimal runtime for columns laid out following the Arrow C data
interface: a schema node describing the logical type plus an array node holding a flat
list of raw buffers.

The root package holds the closed set of logical types understood by the runtime and
the parser that maps a C data interface format string onto them. The rest of the
runtime lives in sub-packages:

	cdata    schema and array nodes, deep copies and the arrow-go bridge
	array    View, the cached buffer-slot projection of a schema/array pair
	vector   allocation and offset-aware copies on top of a View
	compute  the two-phase function invocation protocol
	status   coded error channel shared by the packages above

# Requirements

Despite the name the runtime does not use cgo: the nodes are plain Go values whose
buffers are arrow-go memory.Buffer instances, so the same layout rules apply without
crossing a language boundary.
*/
package carrow
